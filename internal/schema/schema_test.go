package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/schema"
	"github.com/appointment-stack/appointment-stack-go/stack"
)

func TestValidateTemplate_Stack(t *testing.T) {
	for _, mode := range []string{config.CredentialsGenerated, config.CredentialsManaged, config.CredentialsParameter} {
		t.Run(mode, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Database.Credentials = mode
			tmpl, _, err := stack.Build(stack.Props{Config: cfg})
			require.NoError(t, err)

			result := schema.ValidateTemplate(tmpl, schema.Options{Strict: true})
			assert.True(t, result.Valid, "errors: %v", result.Errors)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidateTemplate_MissingRequired(t *testing.T) {
	tmpl := &appointment.Template{
		Resources: map[string]appointment.ResourceDef{
			"Attachment": {
				Type:       "AWS::SecretsManager::SecretTargetAttachment",
				Properties: map[string]any{"SecretId": map[string]any{"Ref": "Secret"}},
			},
		},
	}

	result := schema.ValidateTemplate(tmpl, schema.Options{})
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "TargetId", result.Errors[0].Property)
	assert.Equal(t, "TargetType", result.Errors[1].Property)
	assert.Equal(t, "Attachment.TargetId: missing required property: TargetId", result.Errors[0].Error())
}

func TestValidateTemplate_PropertyValues(t *testing.T) {
	tests := []struct {
		name     string
		resource appointment.ResourceDef
		valid    bool
	}{
		{
			name: "allowed protocol",
			resource: appointment.ResourceDef{Type: "AWS::SNS::Subscription", Properties: map[string]any{
				"Protocol": "sqs", "TopicArn": map[string]any{"Ref": "AppointmentTopic"},
			}},
			valid: true,
		},
		{
			name: "unknown protocol",
			resource: appointment.ResourceDef{Type: "AWS::SNS::Subscription", Properties: map[string]any{
				"Protocol": "pigeon", "TopicArn": map[string]any{"Ref": "AppointmentTopic"},
			}},
			valid: false,
		},
		{
			name: "integer as string",
			resource: appointment.ResourceDef{Type: "AWS::SQS::Queue", Properties: map[string]any{
				"VisibilityTimeout": "thirty",
			}},
			valid: false,
		},
		{
			name: "intrinsic accepted for any type",
			resource: appointment.ResourceDef{Type: "AWS::SQS::Queue", Properties: map[string]any{
				"VisibilityTimeout": map[string]any{"Fn::FindInMap": []any{"Timeouts", "Queue", "Seconds"}},
			}},
			valid: true,
		},
		{
			name: "unknown engine",
			resource: appointment.ResourceDef{Type: "AWS::RDS::DBInstance", Properties: map[string]any{
				"DBInstanceClass": "db.t3.micro", "Engine": "aurora-mongo",
			}},
			valid: false,
		},
		{
			name:     "malformed type",
			resource: appointment.ResourceDef{Type: "SQS::Queue"},
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &appointment.Template{Resources: map[string]appointment.ResourceDef{"R": tt.resource}}
			result := schema.ValidateTemplate(tmpl, schema.Options{})
			assert.Equal(t, tt.valid, result.Valid, "errors: %v", result.Errors)
		})
	}
}

func TestValidateTemplate_Warnings(t *testing.T) {
	tmpl := &appointment.Template{
		Resources: map[string]appointment.ResourceDef{
			"Bucket": {Type: "AWS::S3::Bucket"},
			"Queue":  {Type: "AWS::SQS::Queue", Properties: map[string]any{"DelaySeconds": 5.0}},
		},
	}

	lenient := schema.ValidateTemplate(tmpl, schema.Options{})
	assert.True(t, lenient.Valid)
	require.Len(t, lenient.Warnings, 1)
	assert.Equal(t, "Bucket", lenient.Warnings[0].Resource)

	strict := schema.ValidateTemplate(tmpl, schema.Options{Strict: true})
	assert.True(t, strict.Valid)
	require.Len(t, strict.Warnings, 2)
	assert.Equal(t, "DelaySeconds", strict.Warnings[1].Property)
}
