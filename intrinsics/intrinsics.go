// Package intrinsics provides CloudFormation intrinsic functions.
//
// The core intrinsic types are re-exported from cloudformation-schema-go so that
// stack declarations need a single dot-import:
//
//	Ref{LogicalName: "AppointmentTopic"}              → {"Ref": "AppointmentTopic"}
//	GetAtt{LogicalName: "QueuePE", Attribute: "Arn"}  → {"Fn::GetAtt": ["QueuePE", "Arn"]}
//	Sub{String: "${AWS::StackName}-db"}               → {"Fn::Sub": "${AWS::StackName}-db"}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_STACK_NAME, etc.
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Param creates a Ref for a CloudFormation parameter.
var Param = intrinsics.Param

// ResolveSecret returns a Secrets Manager dynamic reference to a JSON key of
// the secret identified by logical name secret:
//
//	{"Fn::Join": ["", ["{{resolve:secretsmanager:", {"Ref": "Secret"}, ":SecretString:password}}"]]}
func ResolveSecret(secret, key string) Join {
	return Join{
		Delimiter: "",
		Values: []any{
			"{{resolve:secretsmanager:",
			Ref{LogicalName: secret},
			":SecretString:" + key + "}}",
		},
	}
}

// IntPtr returns a pointer to the given int value.
func IntPtr(i int) *int {
	return &i
}
