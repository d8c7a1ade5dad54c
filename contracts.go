// Package appointment provides the shared contracts of the appointment stack.
//
// The appointment stack is declared as typed Go resource values:
//
//	var AppointmentTopic = sns.Topic{}
//
//	var QueuePESubscription = sns.Subscription{
//	    Protocol: "sqs",
//	    TopicArn: Ref{LogicalName: "AppointmentTopic"},
//	    Endpoint: GetAtt{LogicalName: "QueuePE", Attribute: "Arn"},
//	}
//
// The appointment-stack CLI evaluates these declarations into an AWS
// CloudFormation template, checks its topology and optionally deploys it.
package appointment

// Resource represents a CloudFormation resource.
// All resource types (dynamodb.Table, sqs.Queue, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::SQS::Queue")
	ResourceType() string
}

// DiscoveredResource is a resource of the evaluated graph.
type DiscoveredResource struct {
	// Name is the logical ID
	Name string
	// Type is the Go type (e.g., "sqs.Queue")
	Type string
	// CFType is the CloudFormation type (e.g., "AWS::SQS::Queue")
	CFType string
	// Dependencies are logical names of referenced resources and parameters
	Dependencies []string
	// AttrRefUsages records GetAtt references made by this resource
	AttrRefUsages []AttrRefUsage
}

// AttrRefUsage records a GetAtt reference from one resource to another.
type AttrRefUsage struct {
	// ResourceName is the referenced logical ID
	ResourceName string
	// Attribute is the referenced attribute
	Attribute string
	// FieldPath is the property path holding the reference (e.g., "Targets.0.Arn")
	FieldPath string
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
	MinLength     *int     `json:"MinLength,omitempty" yaml:"MinLength,omitempty"`
	NoEcho        bool     `json:"NoEcho,omitempty" yaml:"NoEcho,omitempty"`
}

// Export names a stack output for cross-stack consumption.
type Export struct {
	Name string `json:"Name" yaml:"Name"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// ExportName returns the export name, or "" when the output is not exported.
func (o Output) ExportName() string {
	if o.Export == nil {
		return ""
	}
	return o.Export.Name
}

// BuildResult is the JSON output from `appointment-stack synth`.
type BuildResult struct {
	Success   bool      `json:"success"`
	Template  *Template `json:"template,omitempty"`
	Resources []string  `json:"resources,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
}

// Finding is a single topology check result.
type Finding struct {
	Check    string `json:"check"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Resource string `json:"resource,omitempty"`
	Message  string `json:"message"`
}

// ValidateResult is the JSON output from `appointment-stack validate`.
type ValidateResult struct {
	Success   bool      `json:"success"`
	Resources int       `json:"resources"`
	Findings  []Finding `json:"findings,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `appointment-stack list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// DiffEntry is a single changed resource or output.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type,omitempty"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff lists the changes between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
	Outputs  []DiffEntry `json:"outputs,omitempty"`
}

// DiffSummary counts the changes of a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Outputs  int `json:"outputs"`
	Total    int `json:"total"`
}

// OutputsResult is the JSON output from `appointment-stack outputs`.
type OutputsResult struct {
	Success bool              `json:"success"`
	Stack   string            `json:"stack"`
	Values  map[string]string `json:"values"`
	Missing []string          `json:"missing,omitempty"`
	Empty   []string          `json:"empty,omitempty"`
}
