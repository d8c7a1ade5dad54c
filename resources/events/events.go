// Package events provides Go types for AWS::Events (EventBridge) resources.
package events

// Rule states.
const (
	StateEnabled  = "ENABLED"
	StateDisabled = "DISABLED"
)

// EventBus represents AWS::Events::EventBus.
// Ref returns the bus name.
type EventBus struct {
	Name             any   `json:"Name"`
	Description      any   `json:"Description,omitempty"`
	EventSourceName  any   `json:"EventSourceName,omitempty"`
	DeadLetterConfig any   `json:"DeadLetterConfig,omitempty"`
	Tags             []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r EventBus) ResourceType() string { return "AWS::Events::EventBus" }

// Attributes returns the GetAtt attribute names.
func (r EventBus) Attributes() []string {
	return []string{"Arn", "Name", "Policy"}
}

// Rule represents AWS::Events::Rule.
type Rule struct {
	Name               any           `json:"Name,omitempty"`
	Description        any           `json:"Description,omitempty"`
	EventBusName       any           `json:"EventBusName,omitempty"`
	EventPattern       any           `json:"EventPattern,omitempty"`
	ScheduleExpression any           `json:"ScheduleExpression,omitempty"`
	State              string        `json:"State,omitempty"`
	Targets            []Rule_Target `json:"Targets,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Rule) ResourceType() string { return "AWS::Events::Rule" }

// Attributes returns the GetAtt attribute names.
func (r Rule) Attributes() []string {
	return []string{"Arn"}
}

// Rule_Target is a destination of matched events.
type Rule_Target struct {
	Id               string                 `json:"Id"`
	Arn              any                    `json:"Arn"`
	Input            any                    `json:"Input,omitempty"`
	InputPath        any                    `json:"InputPath,omitempty"`
	DeadLetterConfig *Rule_DeadLetterConfig `json:"DeadLetterConfig,omitempty"`
	RetryPolicy      *Rule_RetryPolicy      `json:"RetryPolicy,omitempty"`
}

// Rule_DeadLetterConfig sends undeliverable events to a queue.
type Rule_DeadLetterConfig struct {
	Arn any `json:"Arn"`
}

// Rule_RetryPolicy bounds delivery retries of a target.
type Rule_RetryPolicy struct {
	MaximumEventAgeInSeconds int `json:"MaximumEventAgeInSeconds,omitempty"`
	MaximumRetryAttempts     int `json:"MaximumRetryAttempts,omitempty"`
}
