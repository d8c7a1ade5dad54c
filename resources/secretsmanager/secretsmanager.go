// Package secretsmanager provides Go types for AWS::SecretsManager resources.
package secretsmanager

// Target types for SecretTargetAttachment.
const (
	TargetTypeDBInstance = "AWS::RDS::DBInstance"
	TargetTypeDBCluster  = "AWS::RDS::DBCluster"
)

// Secret represents AWS::SecretsManager::Secret.
// Ref returns the secret ARN.
type Secret struct {
	Name                 any                          `json:"Name,omitempty"`
	Description          any                          `json:"Description,omitempty"`
	KmsKeyId             any                          `json:"KmsKeyId,omitempty"`
	GenerateSecretString *Secret_GenerateSecretString `json:"GenerateSecretString,omitempty"`
	SecretString         any                          `json:"SecretString,omitempty"`
	Tags                 []any                        `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Secret) ResourceType() string { return "AWS::SecretsManager::Secret" }

// Attributes returns the GetAtt attribute names.
func (r Secret) Attributes() []string {
	return []string{"Id"}
}

// Secret_GenerateSecretString generates a random value under GenerateStringKey.
type Secret_GenerateSecretString struct {
	SecretStringTemplate    string `json:"SecretStringTemplate,omitempty"`
	GenerateStringKey       string `json:"GenerateStringKey,omitempty"`
	PasswordLength          int    `json:"PasswordLength,omitempty"`
	ExcludeCharacters       string `json:"ExcludeCharacters,omitempty"`
	ExcludePunctuation      any    `json:"ExcludePunctuation,omitempty"`
	RequireEachIncludedType any    `json:"RequireEachIncludedType,omitempty"`
}

// SecretTargetAttachment represents AWS::SecretsManager::SecretTargetAttachment.
// It completes the secret with the connection details of the target.
type SecretTargetAttachment struct {
	SecretId   any    `json:"SecretId"`
	TargetId   any    `json:"TargetId"`
	TargetType string `json:"TargetType"`
}

// ResourceType returns the CloudFormation type.
func (r SecretTargetAttachment) ResourceType() string {
	return "AWS::SecretsManager::SecretTargetAttachment"
}
