// Package sns provides Go types for AWS::SNS resources.
package sns

// Subscription protocols.
const (
	ProtocolSQS    = "sqs"
	ProtocolLambda = "lambda"
	ProtocolHTTPS  = "https"
	ProtocolEmail  = "email"
)

// Topic represents AWS::SNS::Topic.
// Ref returns the topic ARN.
type Topic struct {
	TopicName      any    `json:"TopicName,omitempty"`
	DisplayName    any    `json:"DisplayName,omitempty"`
	KmsMasterKeyId any    `json:"KmsMasterKeyId,omitempty"`
	FifoTopic      any    `json:"FifoTopic,omitempty"`
	TracingConfig  string `json:"TracingConfig,omitempty"`
	Tags           []any  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Topic) ResourceType() string { return "AWS::SNS::Topic" }

// Attributes returns the GetAtt attribute names.
func (r Topic) Attributes() []string {
	return []string{"TopicArn", "TopicName"}
}

// Subscription represents AWS::SNS::Subscription.
type Subscription struct {
	Protocol           string `json:"Protocol"`
	TopicArn           any    `json:"TopicArn"`
	Endpoint           any    `json:"Endpoint,omitempty"`
	RawMessageDelivery any    `json:"RawMessageDelivery,omitempty"`
	FilterPolicy       any    `json:"FilterPolicy,omitempty"`
	FilterPolicyScope  string `json:"FilterPolicyScope,omitempty"`
	RedrivePolicy      any    `json:"RedrivePolicy,omitempty"`
	Region             any    `json:"Region,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Subscription) ResourceType() string { return "AWS::SNS::Subscription" }

// Attributes returns the GetAtt attribute names.
func (r Subscription) Attributes() []string {
	return []string{"Arn"}
}
