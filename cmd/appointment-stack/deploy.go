package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/deploy"
	"github.com/appointment-stack/appointment-stack-go/internal/lookup"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	"github.com/appointment-stack/appointment-stack-go/internal/topology"
	"github.com/appointment-stack/appointment-stack-go/stack"
)

func (a *app) deployCmd() *cobra.Command {
	var (
		parameters []string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the stack",
		Long: `Deploy evaluates the stack, checks its topology and creates or updates the
CloudFormation stack through a change set. It waits for completion and prints
the stack outputs.

Template parameters (VpcId, SubnetIds, VpcCidr, DBMasterPassword depending on
the configuration) are passed with --parameter.

Examples:
    appointment-stack deploy --parameter VpcId=vpc-0abc --parameter SubnetIds=subnet-a,subnet-b
    appointment-stack deploy --timeout 45m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			params, err := deploy.ParseParameters(parameters)
			if err != nil {
				return err
			}

			tmpl, _, err := a.evaluate(ctx)
			if err != nil {
				return err
			}

			result := topology.Result(len(tmpl.Resources), topology.Check(tmpl, a.topologyOptions()))
			if !result.Success && !force {
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %s\n", e)
				}
				return fmt.Errorf("refusing to deploy a stack failing validation (use --force to override)")
			}

			body, err := template.ToJSON(tmpl)
			if err != nil {
				return err
			}

			awsCfg, err := lookup.LoadAWSConfig(ctx, a.cfg.Stack.Region)
			if err != nil {
				return err
			}
			deployer := deploy.New(deploy.NewClient(awsCfg), deploy.WithLogger(a.logger))

			a.logger.Info("Deploying stack",
				zap.String("stack", a.cfg.Stack.Name),
				zap.String("region", awsCfg.Region),
				zap.Duration("timeout", a.cfg.Deploy.Timeout))

			res, err := deployer.Deploy(ctx, deploy.Input{
				StackName:    a.cfg.Stack.Name,
				TemplateBody: string(body),
				Parameters:   params,
				Tags:         a.cfg.Stack.TagMap(),
				Timeout:      a.cfg.Deploy.Timeout,
			})
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, deploy.ErrNoChanges):
				fmt.Fprintf(out, "No changes to deploy: %s is %s\n", res.StackName, res.Status)
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Stack %s %sd: %s\n", res.StackName, res.Operation, res.Status)
			}

			printOutputs(out, res.Outputs)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&parameters, "parameter", "p", nil, "Template parameter as Key=Value (repeatable)")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Maximum wait for each deployment step (overrides deploy.timeout)")
	cmd.Flags().BoolVar(&force, "force", false, "Deploy even when topology checks report errors")

	return cmd
}

func (a *app) outputsCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Check the exports of the deployed stack",
		Long: `Outputs reads the outputs of the deployed stack and checks that every expected
export is present with a non-empty value.

Examples:
    appointment-stack outputs
    appointment-stack outputs --stack-name AppointmentCdkStack --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			awsCfg, err := lookup.LoadAWSConfig(ctx, a.cfg.Stack.Region)
			if err != nil {
				return err
			}
			values, err := deploy.New(deploy.NewClient(awsCfg), deploy.WithLogger(a.logger)).Outputs(ctx, a.cfg.Stack.Name)
			if err != nil {
				return err
			}

			result := deploy.CheckOutputs(a.cfg.Stack.Name, values, stack.ExpectedExports(a.cfg))
			if err := outputOutputsResult(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("stack %s is missing %d exports and has %d empty exports",
					result.Stack, len(result.Missing), len(result.Empty))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputOutputsResult(out io.Writer, result appointment.OutputsResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		printOutputs(out, result.Values)
		for _, name := range result.Missing {
			fmt.Fprintf(out, "  MISSING: %s\n", name)
		}
		for _, name := range result.Empty {
			fmt.Fprintf(out, "  EMPTY: %s\n", name)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func printOutputs(out io.Writer, values map[string]string) {
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Outputs (%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(out, "  %s = %s\n", name, values[name])
	}
}
