package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/differ"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
)

type diffOptions struct {
	outputFormat string
	ignoreOrder  bool
	exitCode     bool
}

func (a *app) diffCmd() *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "diff [template1] <template2>",
		Short: "Compare templates semantically",
		Long: `Diff compares two CloudFormation templates, or a template file against the
evaluated stack, and reports added, removed and modified resources and outputs.

Examples:
    appointment-stack diff deployed.json
    appointment-stack diff old.json new.yaml
    appointment-stack diff deployed.json --exit-code`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDiff(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.ignoreOrder, "ignore-order", false, "Ignore list element order")
	cmd.Flags().BoolVar(&opts.exitCode, "exit-code", false, "Exit with status 1 when the templates differ")

	return cmd
}

func (a *app) runDiff(cmd *cobra.Command, args []string, opts diffOptions) error {
	diffOpts := differ.Options{IgnoreOrder: opts.ignoreOrder}

	var (
		result *differ.Result
		err    error
	)
	if len(args) == 2 {
		result, err = differ.CompareFiles(args[0], args[1], diffOpts)
	} else {
		var before, after *appointment.Template
		before, err = template.Load(args[0])
		if err != nil {
			return err
		}
		after, _, err = a.evaluate(cmd.Context())
		if err != nil {
			return err
		}
		result, err = differ.Compare(before, after, diffOpts)
	}
	if err != nil {
		return err
	}

	if err := outputDiff(cmd.OutOrStdout(), result, opts.outputFormat); err != nil {
		return err
	}
	if opts.exitCode && !result.Empty() {
		return errDifferences
	}
	return nil
}

func outputDiff(out io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		printDiffText(out, result)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func printDiffText(out io.Writer, result *differ.Result) {
	if result.Empty() {
		fmt.Fprintln(out, "No differences.")
		return
	}

	for _, e := range result.Diff.Added {
		fmt.Fprintf(out, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Fprintf(out, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Fprintf(out, "~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(out, "    %s\n", c)
		}
	}
	for _, e := range result.Diff.Outputs {
		fmt.Fprintf(out, "~ Outputs.%s\n", e.Resource)
		for _, c := range e.Changes {
			fmt.Fprintf(out, "    %s\n", c)
		}
	}

	s := result.Summary
	fmt.Fprintf(out, "\n%d added, %d removed, %d modified, %d outputs changed\n", s.Added, s.Removed, s.Modified, s.Outputs)
}
