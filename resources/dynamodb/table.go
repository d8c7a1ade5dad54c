// Package dynamodb provides Go types for AWS::DynamoDB resources.
package dynamodb

// Attribute types.
const (
	AttributeTypeString = "S"
	AttributeTypeNumber = "N"
	AttributeTypeBinary = "B"
)

// Key types.
const (
	KeyTypeHash  = "HASH"
	KeyTypeRange = "RANGE"
)

// Billing modes.
const (
	BillingModePayPerRequest = "PAY_PER_REQUEST"
	BillingModeProvisioned   = "PROVISIONED"
)

// Projection types.
const (
	ProjectionTypeAll      = "ALL"
	ProjectionTypeKeysOnly = "KEYS_ONLY"
	ProjectionTypeInclude  = "INCLUDE"
)

// Table represents AWS::DynamoDB::Table.
type Table struct {
	TableName                        any                                     `json:"TableName,omitempty"`
	BillingMode                      string                                  `json:"BillingMode,omitempty"`
	AttributeDefinitions             []Table_AttributeDefinition             `json:"AttributeDefinitions,omitempty"`
	KeySchema                        []Table_KeySchema                       `json:"KeySchema,omitempty"`
	GlobalSecondaryIndexes           []Table_GlobalSecondaryIndex            `json:"GlobalSecondaryIndexes,omitempty"`
	ProvisionedThroughput            *Table_ProvisionedThroughput            `json:"ProvisionedThroughput,omitempty"`
	PointInTimeRecoverySpecification *Table_PointInTimeRecoverySpecification `json:"PointInTimeRecoverySpecification,omitempty"`
	SSESpecification                 *Table_SSESpecification                 `json:"SSESpecification,omitempty"`
	StreamSpecification              *Table_StreamSpecification              `json:"StreamSpecification,omitempty"`
	DeletionProtectionEnabled        any                                     `json:"DeletionProtectionEnabled,omitempty"`
	Tags                             []any                                   `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Table) ResourceType() string { return "AWS::DynamoDB::Table" }

// Attributes returns the GetAtt attribute names.
func (r Table) Attributes() []string {
	return []string{"Arn", "StreamArn"}
}

// Table_AttributeDefinition declares the type of a key attribute.
type Table_AttributeDefinition struct {
	AttributeName string `json:"AttributeName"`
	AttributeType string `json:"AttributeType"`
}

// Table_KeySchema is one element of a primary or index key.
type Table_KeySchema struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

// Table_GlobalSecondaryIndex is an alternate access path over other attributes.
type Table_GlobalSecondaryIndex struct {
	IndexName             string                       `json:"IndexName"`
	KeySchema             []Table_KeySchema            `json:"KeySchema"`
	Projection            Table_Projection             `json:"Projection"`
	ProvisionedThroughput *Table_ProvisionedThroughput `json:"ProvisionedThroughput,omitempty"`
}

// Table_Projection selects the attributes copied into an index.
type Table_Projection struct {
	ProjectionType   string   `json:"ProjectionType,omitempty"`
	NonKeyAttributes []string `json:"NonKeyAttributes,omitempty"`
}

// Table_ProvisionedThroughput sets capacity for PROVISIONED billing.
type Table_ProvisionedThroughput struct {
	ReadCapacityUnits  int `json:"ReadCapacityUnits"`
	WriteCapacityUnits int `json:"WriteCapacityUnits"`
}

// Table_PointInTimeRecoverySpecification toggles continuous backups.
type Table_PointInTimeRecoverySpecification struct {
	PointInTimeRecoveryEnabled any `json:"PointInTimeRecoveryEnabled,omitempty"`
}

// Table_SSESpecification configures server-side encryption.
type Table_SSESpecification struct {
	SSEEnabled any    `json:"SSEEnabled"`
	SSEType    string `json:"SSEType,omitempty"`
}

// Table_StreamSpecification enables a change stream.
type Table_StreamSpecification struct {
	StreamViewType string `json:"StreamViewType"`
}
