// Package sqs provides Go types for AWS::SQS resources.
package sqs

// Queue represents AWS::SQS::Queue.
// Ref returns the queue URL.
type Queue struct {
	QueueName              any                  `json:"QueueName,omitempty"`
	FifoQueue              any                  `json:"FifoQueue,omitempty"`
	VisibilityTimeout      int                  `json:"VisibilityTimeout,omitempty"`
	MessageRetentionPeriod int                  `json:"MessageRetentionPeriod,omitempty"`
	ReceiveMessageWaitTime int                  `json:"ReceiveMessageWaitTimeSeconds,omitempty"`
	SqsManagedSseEnabled   any                  `json:"SqsManagedSseEnabled,omitempty"`
	KmsMasterKeyId         any                  `json:"KmsMasterKeyId,omitempty"`
	RedrivePolicy          *Queue_RedrivePolicy `json:"RedrivePolicy,omitempty"`
	Tags                   []any                `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Queue) ResourceType() string { return "AWS::SQS::Queue" }

// Attributes returns the GetAtt attribute names.
func (r Queue) Attributes() []string {
	return []string{"Arn", "QueueName", "QueueUrl"}
}

// Queue_RedrivePolicy moves messages to a dead-letter queue after maxReceiveCount receives.
type Queue_RedrivePolicy struct {
	DeadLetterTargetArn any `json:"deadLetterTargetArn"`
	MaxReceiveCount     int `json:"maxReceiveCount"`
}

// QueuePolicy represents AWS::SQS::QueuePolicy.
type QueuePolicy struct {
	PolicyDocument any   `json:"PolicyDocument"`
	Queues         []any `json:"Queues"`
}

// ResourceType returns the CloudFormation type.
func (r QueuePolicy) ResourceType() string { return "AWS::SQS::QueuePolicy" }

// Attributes returns the GetAtt attribute names.
func (r QueuePolicy) Attributes() []string {
	return []string{"Id"}
}
