package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appointment "github.com/appointment-stack/appointment-stack-go"
)

func (a *app) synthCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate the CloudFormation template",
		Long: `Synth evaluates the appointment stack and renders its CloudFormation template.

Examples:
    appointment-stack synth
    appointment-stack synth -o template.json
    appointment-stack synth --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSynth(cmd, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func (a *app) runSynth(cmd *cobra.Command, format, outputFile string) error {
	tmpl, builder, err := a.evaluate(cmd.Context())
	if err != nil {
		return a.outputBuildResult(cmd, appointment.BuildResult{Success: false, Errors: errorLines(err)}, format, outputFile)
	}

	return a.outputBuildResult(cmd, appointment.BuildResult{
		Success:   true,
		Template:  tmpl,
		Resources: builder.Order(),
	}, format, outputFile)
}

func (a *app) outputBuildResult(cmd *cobra.Command, result appointment.BuildResult, format, outputFile string) error {
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), e)
		}
		return fmt.Errorf("synth failed")
	}

	data, err := render(result.Template, format)
	if err != nil {
		return err
	}
	return a.writeOutput(cmd.OutOrStdout(), data, outputFile)
}
