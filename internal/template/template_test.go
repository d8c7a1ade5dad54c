package template

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appointment "github.com/appointment-stack/appointment-stack-go"
	. "github.com/appointment-stack/appointment-stack-go/intrinsics"
	"github.com/appointment-stack/appointment-stack-go/resources/events"
	"github.com/appointment-stack/appointment-stack-go/resources/sns"
	"github.com/appointment-stack/appointment-stack-go/resources/sqs"
)

func fanoutBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	b := NewBuilder(opts...)
	b.SetResource("AppointmentTopic", sns.Topic{})
	b.SetResource("QueuePE", sqs.Queue{}, WithRemovalPolicy("Delete"))
	b.SetResource("QueuePESubscription", sns.Subscription{
		Protocol: sns.ProtocolSQS,
		TopicArn: Ref{LogicalName: "AppointmentTopic"},
		Endpoint: GetAtt{LogicalName: "QueuePE", Attribute: "Arn"},
	})
	return b
}

func TestBuilder_Build_SimpleResource(t *testing.T) {
	b := NewBuilder()
	b.SetResource("QueuePE", sqs.Queue{VisibilityTimeout: 30})

	template, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", template.AWSTemplateFormatVersion)
	require.Len(t, template.Resources, 1)

	queue := template.Resources["QueuePE"]
	assert.Equal(t, "AWS::SQS::Queue", queue.Type)
	assert.Equal(t, float64(30), queue.Properties["VisibilityTimeout"])
}

func TestBuilder_Build_WithDependencies(t *testing.T) {
	b := fanoutBuilder(t)

	template, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, template.Resources, 3)

	sub := b.Discovered()["QueuePESubscription"]
	assert.Equal(t, "sns.Subscription", sub.Type)
	assert.Equal(t, "AWS::SNS::Subscription", sub.CFType)
	assert.Equal(t, []string{"AppointmentTopic", "QueuePE"}, sub.Dependencies)
	require.Len(t, sub.AttrRefUsages, 1)
	assert.Equal(t, appointment.AttrRefUsage{ResourceName: "QueuePE", Attribute: "Arn", FieldPath: "Endpoint"}, sub.AttrRefUsages[0])

	order := b.Order()
	require.Len(t, order, 3)
	assert.Equal(t, "QueuePESubscription", order[2])
	assert.Equal(t, []string{"AppointmentTopic", "QueuePE"}, order[:2])

	queue := template.Resources["QueuePE"]
	assert.Equal(t, "Delete", queue.DeletionPolicy)
	assert.Equal(t, "Delete", queue.UpdateReplacePolicy)
}

func TestBuilder_Build_SubDependencies(t *testing.T) {
	b := NewBuilder()
	b.SetResource("AppointmentEventBus", events.EventBus{Name: "AppointmentEvents"})
	b.SetResource("BackupQueue", sqs.Queue{
		QueueName: Sub{String: "${AWS::StackName}-${AppointmentEventBus}-backup-${AppointmentEventBus.Arn}${!Literal}"},
	})

	_, err := b.Build()
	require.NoError(t, err)

	backup := b.Discovered()["BackupQueue"]
	assert.Equal(t, []string{"AppointmentEventBus"}, backup.Dependencies)
	require.Len(t, backup.AttrRefUsages, 1)
	assert.Equal(t, "Arn", backup.AttrRefUsages[0].Attribute)
}

func TestBuilder_Build_ParameterReference(t *testing.T) {
	b := NewBuilder()
	b.SetParameter("QueueName", appointment.Parameter{Type: "String"})
	b.SetResource("QueuePE", sqs.Queue{QueueName: Param("QueueName")})

	template, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "String", template.Parameters["QueueName"].Type)
	assert.Equal(t, []string{"QueueName"}, b.Discovered()["QueuePE"].Dependencies)
	assert.Equal(t, []string{"QueuePE"}, b.Order())
}

func TestBuilder_Build_PseudoParameterIsNotADependency(t *testing.T) {
	b := NewBuilder()
	b.SetResource("QueuePE", sqs.Queue{QueueName: Join{Delimiter: "-", Values: []any{AWS_STACK_NAME, "pe"}}})

	_, err := b.Build()
	require.NoError(t, err)
	assert.Empty(t, b.Discovered()["QueuePE"].Dependencies)
}

func TestBuilder_Build_UnknownReference(t *testing.T) {
	tests := []struct {
		name  string
		value appointment.Resource
	}{
		{
			name:  "ref to undeclared name",
			value: sns.Subscription{Protocol: "sqs", TopicArn: Ref{LogicalName: "MissingTopic"}},
		},
		{
			name:  "getatt to unknown attribute",
			value: sns.Subscription{Protocol: "sqs", TopicArn: Ref{LogicalName: "AppointmentTopic"}, Endpoint: GetAtt{LogicalName: "QueuePE", Attribute: "Endpoint"}},
		},
		{
			name:  "sub token to undeclared name",
			value: sns.Subscription{Protocol: "sqs", TopicArn: Sub{String: "${Nowhere}"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			b.SetResource("AppointmentTopic", sns.Topic{})
			b.SetResource("QueuePE", sqs.Queue{})
			b.SetResource("Broken", tt.value)

			_, err := b.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownReference))
		})
	}
}

func TestBuilder_Build_UnknownDependsOn(t *testing.T) {
	b := NewBuilder()
	b.SetResource("QueuePE", sqs.Queue{}, WithDependsOn("Nothing"))

	_, err := b.Build()
	require.ErrorIs(t, err, ErrUnknownReference)
	assert.Contains(t, err.Error(), "Nothing")
}

func TestBuilder_Build_ExplicitDependsOn(t *testing.T) {
	b := NewBuilder()
	b.SetResource("QueuePE", sqs.Queue{})
	b.SetResource("QueueCL", sqs.Queue{}, WithDependsOn("QueuePE", "QueuePE"))

	template, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"QueuePE"}, template.Resources["QueueCL"].DependsOn)
	assert.Equal(t, []string{"QueuePE", "QueueCL"}, b.Order())
}

func TestBuilder_Build_CircularDependency(t *testing.T) {
	b := NewBuilder()
	b.SetResource("A", sqs.Queue{QueueName: GetAtt{LogicalName: "B", Attribute: "QueueName"}})
	b.SetResource("B", sqs.Queue{QueueName: GetAtt{LogicalName: "A", Attribute: "QueueName"}})

	_, err := b.Build()
	require.ErrorIs(t, err, ErrCircularDependency)
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "B")
}

func TestBuilder_Build_MergesTags(t *testing.T) {
	b := NewBuilder(WithTags(map[string]string{"project": "appointments", "owner": "platform"}))
	b.SetResource("QueuePE", sqs.Queue{Tags: []any{Tag{Key: "owner", Value: "intake"}}})
	b.SetResource("QueuePESubscription", sns.Subscription{Protocol: "sqs", TopicArn: "arn:aws:sns:us-east-1:123456789012:t"})

	template, err := b.Build()
	require.NoError(t, err)

	tags := template.Resources["QueuePE"].Properties["Tags"].([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, map[string]any{"Key": "owner", "Value": "intake"}, tags[0])
	assert.Equal(t, map[string]any{"Key": "project", "Value": "appointments"}, tags[1])

	// Subscriptions carry no tags.
	assert.NotContains(t, template.Resources["QueuePESubscription"].Properties, "Tags")
}

func TestBuilder_Build_Outputs(t *testing.T) {
	b := fanoutBuilder(t)
	b.SetOutput("QueuePEName", appointment.Output{
		Value:  GetAtt{LogicalName: "QueuePE", Attribute: "Arn"},
		Export: &appointment.Export{Name: "QueuePEName"},
	})

	template, err := b.Build()
	require.NoError(t, err)

	out := template.Outputs["QueuePEName"]
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"QueuePE", "Arn"}}, out.Value)
	assert.Equal(t, "QueuePEName", out.ExportName())
}

func TestBuilder_Build_OutputUnknownReference(t *testing.T) {
	b := NewBuilder()
	b.SetOutput("Missing", appointment.Output{Value: Ref{LogicalName: "Nothing"}})

	_, err := b.Build()
	require.ErrorIs(t, err, ErrUnknownReference)
}

func TestToJSON_Idempotent(t *testing.T) {
	render := func() []byte {
		b := fanoutBuilder(t, WithDescription("fan-out"), WithTags(map[string]string{"b": "2", "a": "1"}))
		template, err := b.Build()
		require.NoError(t, err)
		data, err := ToJSON(template)
		require.NoError(t, err)
		return data
	}

	first := render()
	second := render()
	assert.Equal(t, string(first), string(second))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(first, &parsed))
	assert.Equal(t, "fan-out", parsed["Description"])
}

func TestToYAML(t *testing.T) {
	b := fanoutBuilder(t, WithDescription("fan-out"))
	template, err := b.Build()
	require.NoError(t, err)

	data, err := ToYAML(template)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "AWSTemplateFormatVersion:")
	assert.Contains(t, content, "2010-09-09")
	assert.Contains(t, content, "Type: AWS::SNS::Subscription")
	assert.Less(t, strings.Index(content, "Description:"), strings.Index(content, "Resources:"))

	again, err := ToYAML(template)
	require.NoError(t, err)
	assert.Equal(t, content, string(again))
}

func TestLoad_JSONAndYAML(t *testing.T) {
	b := fanoutBuilder(t)
	template, err := b.Build()
	require.NoError(t, err)

	dir := t.TempDir()
	jsonData, err := ToJSON(template)
	require.NoError(t, err)
	yamlData, err := ToYAML(template)
	require.NoError(t, err)

	jsonPath := filepath.Join(dir, "template.json")
	yamlPath := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(jsonPath, jsonData, 0o644))
	require.NoError(t, os.WriteFile(yamlPath, yamlData, 0o644))

	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)
	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, "AWS::SQS::Queue", fromYAML.Resources["QueuePE"].Type)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Parse([]byte("Resources: [unclosed"), ".yaml")
	require.Error(t, err)
}
