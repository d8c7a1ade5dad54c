// Package deploy creates or updates the appointment stack through
// CloudFormation change sets and reads its outputs.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/ubuntu/decorate"
	"go.uber.org/zap"

	appointment "github.com/appointment-stack/appointment-stack-go"
)

var (
	// ErrNoChanges is returned when the template matches the deployed stack.
	ErrNoChanges = errors.New("no changes to deploy")

	// ErrStackNotFound is returned when the stack does not exist.
	ErrStackNotFound = errors.New("stack not found")

	// ErrRollbackComplete is returned for a stack whose first create rolled
	// back. CloudFormation accepts no change set for it until it is deleted.
	ErrRollbackComplete = errors.New("stack creation was rolled back; delete the stack and deploy again")
)

// Operations.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

// changeSetPrefix prefixes generated change set names.
const changeSetPrefix = "appointment-stack-"

// CloudFormationAPI is the subset of the CloudFormation client used by deploys.
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error)
	DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)
	ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error)
	DeleteChangeSet(ctx context.Context, params *cloudformation.DeleteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error)
}

// NewClient returns a CloudFormation client for cfg.
func NewClient(cfg aws.Config) *cloudformation.Client {
	return cloudformation.NewFromConfig(cfg)
}

// Deployer drives change sets against one CloudFormation client.
type Deployer struct {
	client    CloudFormationAPI
	logger    *zap.Logger
	pollDelay time.Duration
	newID     func() string
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Deployer) { d.logger = logger }
}

// WithPollDelay sets the minimum delay between status polls.
func WithPollDelay(delay time.Duration) Option {
	return func(d *Deployer) { d.pollDelay = delay }
}

// New returns a Deployer using client.
func New(client CloudFormationAPI, opts ...Option) *Deployer {
	d := &Deployer{
		client:    client,
		logger:    zap.NewNop(),
		pollDelay: 5 * time.Second,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input describes a deployment.
type Input struct {
	StackName    string
	TemplateBody string
	Parameters   map[string]string
	Tags         map[string]string
	// Timeout bounds each wait: change set creation and stack completion.
	Timeout time.Duration
}

// Result describes a finished deployment.
type Result struct {
	StackName     string
	StackID       string
	ChangeSetName string
	Operation     string
	Status        string
	// Outputs maps export names (or output keys when not exported) to values.
	Outputs map[string]string
}

// Deploy creates the stack, or updates it when it exists, and waits for
// completion. An update without changes returns ErrNoChanges along with the
// current outputs.
func (d *Deployer) Deploy(ctx context.Context, in Input) (res Result, err error) {
	defer decorate.OnError(&err, "deploying stack %s", in.StackName)

	if in.Timeout <= 0 {
		return Result{}, fmt.Errorf("timeout must be positive, got %s", in.Timeout)
	}

	res = Result{StackName: in.StackName, Operation: OperationUpdate}
	changeSetType := types.ChangeSetTypeUpdate

	stack, err := d.describeStack(ctx, in.StackName)
	switch {
	case errors.Is(err, ErrStackNotFound):
		res.Operation = OperationCreate
		changeSetType = types.ChangeSetTypeCreate
	case err != nil:
		return Result{}, err
	case stack.StackStatus == types.StackStatusReviewInProgress:
		// A previous create change set was never executed.
		res.Operation = OperationCreate
		changeSetType = types.ChangeSetTypeCreate
	case stack.StackStatus == types.StackStatusRollbackComplete:
		return Result{}, fmt.Errorf("%w (status %s: %s)", ErrRollbackComplete, stack.StackStatus, aws.ToString(stack.StackStatusReason))
	}

	res.ChangeSetName = changeSetPrefix + d.newID()
	d.logger.Info("Creating change set",
		zap.String("stack", in.StackName),
		zap.String("change_set", res.ChangeSetName),
		zap.String("operation", res.Operation))

	created, err := d.client.CreateChangeSet(ctx, &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(res.ChangeSetName),
		ChangeSetType: changeSetType,
		TemplateBody:  aws.String(in.TemplateBody),
		Parameters:    parameters(in.Parameters),
		Tags:          tags(in.Tags),
		ClientToken:   aws.String(d.newID()),
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating change set: %w", err)
	}
	res.StackID = aws.ToString(created.StackId)

	describeChangeSet := &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(res.ChangeSetName),
	}
	waiter := cloudformation.NewChangeSetCreateCompleteWaiter(d.client, func(o *cloudformation.ChangeSetCreateCompleteWaiterOptions) {
		o.MinDelay = d.pollDelay
		o.MaxDelay = max(d.pollDelay, o.MaxDelay)
	})
	if err := waiter.Wait(ctx, describeChangeSet, in.Timeout); err != nil {
		return d.changeSetFailed(ctx, res, describeChangeSet, err)
	}

	d.logger.Info("Executing change set", zap.String("change_set", res.ChangeSetName))
	if _, err := d.client.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		StackName:          aws.String(in.StackName),
		ChangeSetName:      aws.String(res.ChangeSetName),
		ClientRequestToken: aws.String(d.newID()),
	}); err != nil {
		return Result{}, fmt.Errorf("executing change set: %w", err)
	}

	if err := d.waitStack(ctx, in.StackName, res.Operation, in.Timeout); err != nil {
		return Result{}, err
	}

	stack, err = d.describeStack(ctx, in.StackName)
	if err != nil {
		return Result{}, err
	}
	res.StackID = aws.ToString(stack.StackId)
	res.Status = string(stack.StackStatus)
	res.Outputs = outputValues(stack.Outputs)

	d.logger.Info("Stack deployed",
		zap.String("stack", in.StackName),
		zap.String("status", res.Status),
		zap.Int("outputs", len(res.Outputs)))
	return res, nil
}

// changeSetFailed inspects a change set that did not reach CREATE_COMPLETE.
// Change sets without changes are deleted and reported as ErrNoChanges.
func (d *Deployer) changeSetFailed(ctx context.Context, res Result, params *cloudformation.DescribeChangeSetInput, waitErr error) (Result, error) {
	out, err := d.client.DescribeChangeSet(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("waiting for change set: %w", errors.Join(waitErr, err))
	}

	reason := aws.ToString(out.StatusReason)
	if out.Status != types.ChangeSetStatusFailed || !isNoChanges(reason) {
		return Result{}, fmt.Errorf("change set %s is %s: %s: %w", res.ChangeSetName, out.Status, reason, waitErr)
	}

	d.logger.Info("No changes to deploy, deleting change set", zap.String("change_set", res.ChangeSetName))
	if _, err := d.client.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
		StackName:     params.StackName,
		ChangeSetName: params.ChangeSetName,
	}); err != nil {
		d.logger.Warn("Failed to delete empty change set", zap.String("change_set", res.ChangeSetName), zap.Error(err))
	}

	stack, err := d.describeStack(ctx, res.StackName)
	if err != nil {
		return Result{}, err
	}
	res.StackID = aws.ToString(stack.StackId)
	res.Status = string(stack.StackStatus)
	res.Outputs = outputValues(stack.Outputs)
	return res, ErrNoChanges
}

func isNoChanges(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") ||
		strings.Contains(reason, "No updates are to be performed")
}

func (d *Deployer) waitStack(ctx context.Context, name, operation string, timeout time.Duration) error {
	params := &cloudformation.DescribeStacksInput{StackName: aws.String(name)}

	var err error
	if operation == OperationCreate {
		err = cloudformation.NewStackCreateCompleteWaiter(d.client, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
			o.MinDelay = d.pollDelay
			o.MaxDelay = max(d.pollDelay, o.MaxDelay)
		}).Wait(ctx, params, timeout)
	} else {
		err = cloudformation.NewStackUpdateCompleteWaiter(d.client, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
			o.MinDelay = d.pollDelay
			o.MaxDelay = max(d.pollDelay, o.MaxDelay)
		}).Wait(ctx, params, timeout)
	}
	if err == nil {
		return nil
	}

	if stack, derr := d.describeStack(ctx, name); derr == nil {
		return fmt.Errorf("stack is %s: %s: %w", stack.StackStatus, aws.ToString(stack.StackStatusReason), err)
	}
	return fmt.Errorf("waiting for stack %s: %w", operation, err)
}

// Outputs returns the outputs of a deployed stack, keyed by export name or
// output key.
func (d *Deployer) Outputs(ctx context.Context, stackName string) (values map[string]string, err error) {
	defer decorate.OnError(&err, "reading outputs of stack %s", stackName)

	stack, err := d.describeStack(ctx, stackName)
	if err != nil {
		return nil, err
	}
	return outputValues(stack.Outputs), nil
}

func (d *Deployer) describeStack(ctx context.Context, name string) (types.Stack, error) {
	out, err := d.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist") {
			return types.Stack{}, ErrStackNotFound
		}
		return types.Stack{}, fmt.Errorf("describing stack: %w", err)
	}
	if len(out.Stacks) == 0 {
		return types.Stack{}, ErrStackNotFound
	}
	return out.Stacks[0], nil
}

// CheckOutputs reports the expected exports missing from values or empty.
func CheckOutputs(stackName string, values map[string]string, expected []string) appointment.OutputsResult {
	result := appointment.OutputsResult{
		Success: true,
		Stack:   stackName,
		Values:  values,
	}
	for _, name := range expected {
		v, ok := values[name]
		switch {
		case !ok:
			result.Missing = append(result.Missing, name)
		case strings.TrimSpace(v) == "":
			result.Empty = append(result.Empty, name)
		}
	}
	result.Success = len(result.Missing) == 0 && len(result.Empty) == 0
	return result
}

func outputValues(outputs []types.Output) map[string]string {
	values := make(map[string]string, len(outputs))
	for _, o := range outputs {
		key := aws.ToString(o.ExportName)
		if key == "" {
			key = aws.ToString(o.OutputKey)
		}
		values[key] = aws.ToString(o.OutputValue)
	}
	return values
}

func parameters(values map[string]string) []types.Parameter {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]types.Parameter, 0, len(keys))
	for _, k := range keys {
		params = append(params, types.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(values[k]),
		})
	}
	return params
}

func tags(values map[string]string) []types.Tag {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(values[k])})
	}
	return out
}

// ParseParameters parses Key=Value pairs.
func ParseParameters(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("parameter %q is not Key=Value", p)
		}
		values[k] = v
	}
	return values, nil
}
