package deploy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeCFN struct {
	stack *types.Stack

	changeSetStatus types.ChangeSetStatus
	changeSetReason string
	finalStatus     types.StackStatus
	describeErr     error

	created  *cloudformation.CreateChangeSetInput
	executed *cloudformation.ExecuteChangeSetInput
	deleted  *cloudformation.DeleteChangeSetInput
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if f.stack == nil {
		return nil, &smithy.GenericAPIError{
			Code:    "ValidationError",
			Message: fmt.Sprintf("Stack with id %s does not exist", aws.ToString(in.StackName)),
		}
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []types.Stack{*f.stack}}, nil
}

func (f *fakeCFN) CreateChangeSet(_ context.Context, in *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	f.created = in
	if in.ChangeSetType == types.ChangeSetTypeCreate {
		f.stack = &types.Stack{
			StackName:   in.StackName,
			StackId:     aws.String("arn:aws:cloudformation:us-east-1:123456789012:stack/" + aws.ToString(in.StackName) + "/1"),
			StackStatus: types.StackStatusReviewInProgress,
		}
	}
	return &cloudformation.CreateChangeSetOutput{Id: aws.String("cs-arn"), StackId: f.stack.StackId}, nil
}

func (f *fakeCFN) DescribeChangeSet(_ context.Context, _ *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	return &cloudformation.DescribeChangeSetOutput{
		Status:       f.changeSetStatus,
		StatusReason: aws.String(f.changeSetReason),
	}, nil
}

func (f *fakeCFN) ExecuteChangeSet(_ context.Context, in *cloudformation.ExecuteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	f.executed = in
	f.stack.StackStatus = f.finalStatus
	if f.finalStatus == types.StackStatusCreateComplete || f.finalStatus == types.StackStatusUpdateComplete {
		f.stack.Outputs = []types.Output{
			{OutputKey: aws.String("AppointmentsTableName"), OutputValue: aws.String("Appointments"), ExportName: aws.String("AppointmentsTableName")},
			{OutputKey: aws.String("Unexported"), OutputValue: aws.String("value")},
		}
	} else {
		f.stack.StackStatusReason = aws.String("Resource creation cancelled")
	}
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (f *fakeCFN) DeleteChangeSet(_ context.Context, in *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	f.deleted = in
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

func existingStack(status types.StackStatus) *types.Stack {
	return &types.Stack{
		StackName:   aws.String("AppointmentCdkStack"),
		StackId:     aws.String("arn:aws:cloudformation:us-east-1:123456789012:stack/AppointmentCdkStack/1"),
		StackStatus: status,
		Outputs: []types.Output{
			{OutputKey: aws.String("AppointmentDbName"), OutputValue: aws.String("appointment_db"), ExportName: aws.String("AppointmentDbName")},
		},
	}
}

func newDeployer(t *testing.T, fake *fakeCFN) *Deployer {
	t.Helper()
	d := New(fake, WithLogger(zaptest.NewLogger(t)), WithPollDelay(time.Millisecond))
	n := 0
	d.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return d
}

func input() Input {
	return Input{
		StackName:    "AppointmentCdkStack",
		TemplateBody: `{"Resources":{}}`,
		Parameters:   map[string]string{"VpcId": "vpc-1", "SubnetIds": "subnet-a,subnet-b"},
		Tags:         map[string]string{"Project": "appointments"},
		Timeout:      time.Second,
	}
}

func TestDeploy_CreatesStack(t *testing.T) {
	fake := &fakeCFN{
		changeSetStatus: types.ChangeSetStatusCreateComplete,
		finalStatus:     types.StackStatusCreateComplete,
	}

	res, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.NoError(t, err)

	assert.Equal(t, OperationCreate, res.Operation)
	assert.Equal(t, "appointment-stack-id-1", res.ChangeSetName)
	assert.Equal(t, string(types.StackStatusCreateComplete), res.Status)
	assert.Equal(t, map[string]string{"AppointmentsTableName": "Appointments", "Unexported": "value"}, res.Outputs)

	require.NotNil(t, fake.created)
	assert.Equal(t, types.ChangeSetTypeCreate, fake.created.ChangeSetType)
	assert.Equal(t, "id-2", aws.ToString(fake.created.ClientToken))
	require.Len(t, fake.created.Parameters, 2)
	assert.Equal(t, "SubnetIds", aws.ToString(fake.created.Parameters[0].ParameterKey))
	assert.Equal(t, "VpcId", aws.ToString(fake.created.Parameters[1].ParameterKey))
	require.Len(t, fake.created.Tags, 1)
	assert.Equal(t, "Project", aws.ToString(fake.created.Tags[0].Key))

	require.NotNil(t, fake.executed)
	assert.Equal(t, "appointment-stack-id-1", aws.ToString(fake.executed.ChangeSetName))
	assert.Equal(t, "id-3", aws.ToString(fake.executed.ClientRequestToken))
}

func TestDeploy_UpdatesStack(t *testing.T) {
	fake := &fakeCFN{
		stack:           existingStack(types.StackStatusCreateComplete),
		changeSetStatus: types.ChangeSetStatusCreateComplete,
		finalStatus:     types.StackStatusUpdateComplete,
	}

	res, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, OperationUpdate, res.Operation)
	assert.Equal(t, types.ChangeSetTypeUpdate, fake.created.ChangeSetType)
	assert.Equal(t, string(types.StackStatusUpdateComplete), res.Status)
}

func TestDeploy_ReviewInProgressIsCreate(t *testing.T) {
	fake := &fakeCFN{
		stack:           existingStack(types.StackStatusReviewInProgress),
		changeSetStatus: types.ChangeSetStatusCreateComplete,
		finalStatus:     types.StackStatusCreateComplete,
	}

	res, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, OperationCreate, res.Operation)
}

func TestDeploy_RollbackCompleteNeedsDelete(t *testing.T) {
	stack := existingStack(types.StackStatusRollbackComplete)
	stack.StackStatusReason = aws.String("The following resource(s) failed to create: [AppointmentDb].")
	fake := &fakeCFN{stack: stack}

	_, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.ErrorIs(t, err, ErrRollbackComplete)
	assert.Contains(t, err.Error(), "delete the stack")
	assert.Contains(t, err.Error(), "ROLLBACK_COMPLETE")
	assert.Contains(t, err.Error(), "AppointmentDb")

	assert.Nil(t, fake.created)
	assert.Nil(t, fake.executed)
}

func TestDeploy_NoChanges(t *testing.T) {
	fake := &fakeCFN{
		stack:           existingStack(types.StackStatusUpdateComplete),
		changeSetStatus: types.ChangeSetStatusFailed,
		changeSetReason: "The submitted information didn't contain changes. Submit different information to create a change set.",
	}

	res, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.ErrorIs(t, err, ErrNoChanges)

	assert.Nil(t, fake.executed)
	require.NotNil(t, fake.deleted)
	assert.Equal(t, "appointment-stack-id-1", aws.ToString(fake.deleted.ChangeSetName))
	assert.Equal(t, map[string]string{"AppointmentDbName": "appointment_db"}, res.Outputs)
}

func TestDeploy_ChangeSetFailed(t *testing.T) {
	fake := &fakeCFN{
		stack:           existingStack(types.StackStatusUpdateComplete),
		changeSetStatus: types.ChangeSetStatusFailed,
		changeSetReason: "Template format error: Unresolved resource dependencies",
	}

	_, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoChanges)
	assert.Contains(t, err.Error(), "Unresolved resource dependencies")
	assert.Contains(t, err.Error(), "deploying stack AppointmentCdkStack")
	assert.Nil(t, fake.deleted)
}

func TestDeploy_StackRolledBack(t *testing.T) {
	fake := &fakeCFN{
		stack:           existingStack(types.StackStatusUpdateComplete),
		changeSetStatus: types.ChangeSetStatusCreateComplete,
		finalStatus:     types.StackStatusUpdateRollbackComplete,
	}

	_, err := newDeployer(t, fake).Deploy(context.Background(), input())
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.StackStatusUpdateRollbackComplete))
	assert.Contains(t, err.Error(), "Resource creation cancelled")
}

func TestDeploy_Errors(t *testing.T) {
	t.Run("non-positive timeout", func(t *testing.T) {
		in := input()
		in.Timeout = 0
		_, err := newDeployer(t, &fakeCFN{}).Deploy(context.Background(), in)
		require.Error(t, err)
	})

	t.Run("describe failure", func(t *testing.T) {
		fake := &fakeCFN{describeErr: errors.New("throttled")}
		_, err := newDeployer(t, fake).Deploy(context.Background(), input())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "throttled")
		assert.Nil(t, fake.created)
	})
}

func TestOutputs(t *testing.T) {
	d := newDeployer(t, &fakeCFN{stack: existingStack(types.StackStatusCreateComplete)})

	values, err := d.Outputs(context.Background(), "AppointmentCdkStack")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"AppointmentDbName": "appointment_db"}, values)

	_, err = newDeployer(t, &fakeCFN{}).Outputs(context.Background(), "Missing")
	require.ErrorIs(t, err, ErrStackNotFound)
	assert.Contains(t, err.Error(), "reading outputs of stack Missing")
}

func TestCheckOutputs(t *testing.T) {
	values := map[string]string{
		"AppointmentsTableName": "Appointments",
		"AppointmentDbName":     " ",
	}

	result := CheckOutputs("AppointmentCdkStack", values, []string{"AppointmentsTableName", "AppointmentDbName", "BackupQueueArn"})
	assert.False(t, result.Success)
	assert.Equal(t, []string{"BackupQueueArn"}, result.Missing)
	assert.Equal(t, []string{"AppointmentDbName"}, result.Empty)

	result = CheckOutputs("AppointmentCdkStack", values, []string{"AppointmentsTableName"})
	assert.True(t, result.Success)
}

func TestParseParameters(t *testing.T) {
	values, err := ParseParameters([]string{"VpcId=vpc-1", "SubnetIds=subnet-a,subnet-b", "Empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"VpcId": "vpc-1", "SubnetIds": "subnet-a,subnet-b", "Empty": ""}, values)

	_, err = ParseParameters([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseParameters([]string{"=x"})
	assert.Error(t, err)
}
