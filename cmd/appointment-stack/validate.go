package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/schema"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	"github.com/appointment-stack/appointment-stack-go/internal/topology"
	"github.com/appointment-stack/appointment-stack-go/internal/validation"
)

// Checks run by validate next to the topology checks.
const (
	checkSchema  = "SCHEMA"
	checkCfnLint = "CFN_LINT"
)

type validateOptions struct {
	outputFormat    string
	templateFile    string
	skipCfnLint     bool
	skipIdempotence bool
	strictSchema    bool
}

// validateCmd creates the "validate" subcommand for checking the stack.
func (a *app) validateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stack topology and template",
		Long: `Validate evaluates the stack, or loads a template file, and checks its structure.

Checks performed:
  - TABLE: one partition key, one secondary index on insuredId projecting ALL
  - FANOUT: the topic delivers to exactly two distinct queues
  - ROUTING: the rule matches the configured source and targets one queue
  - INGRESS: a private database is not open to every address
  - OUTPUTS: every expected export is present and non-empty
  - IDEMPOTENCE: evaluating twice yields the same template
  - SCHEMA: required properties, property types and allowed values
  - CFN_LINT: cfn-lint template rules

Examples:
    appointment-stack validate
    appointment-stack validate --template template.json
    appointment-stack validate --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVarP(&opts.templateFile, "template", "t", "", "Validate a template file instead of the evaluated stack")
	cmd.Flags().BoolVar(&opts.skipCfnLint, "skip-cfn-lint", false, "Skip cfn-lint template rules")
	cmd.Flags().BoolVar(&opts.skipIdempotence, "skip-idempotence", false, "Skip the second evaluation")
	cmd.Flags().BoolVar(&opts.strictSchema, "strict-schema", false, "Warn about properties missing from the resource schemas")

	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, opts validateOptions) error {
	ctx := cmd.Context()

	var (
		tmpl     *appointment.Template
		findings []appointment.Finding
		err      error
	)
	if opts.templateFile != "" {
		tmpl, err = template.Load(opts.templateFile)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	} else {
		tmpl, _, err = a.evaluate(ctx)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if !opts.skipIdempotence {
			findings = topology.Idempotence(func() (*appointment.Template, error) {
				t, _, err := a.evaluate(ctx)
				return t, err
			})
		}
	}

	findings = append(topology.Check(tmpl, a.topologyOptions()), findings...)
	findings = append(findings, schemaFindings(tmpl, opts.strictSchema)...)

	if !opts.skipCfnLint {
		lintResult, err := validation.LintTemplate(tmpl)
		if err != nil {
			return fmt.Errorf("running cfn-lint: %w", err)
		}
		for _, msg := range lintResult.Errors {
			findings = append(findings, appointment.Finding{Check: checkCfnLint, Severity: topology.SeverityError, Message: msg})
		}
		for _, msg := range lintResult.Warnings {
			findings = append(findings, appointment.Finding{Check: checkCfnLint, Severity: topology.SeverityWarning, Message: msg})
		}
	}

	result := topology.Result(len(tmpl.Resources), findings)
	if err := outputValidateResult(cmd, result, opts.outputFormat); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("validation failed: %d errors", len(result.Errors))
	}
	return nil
}

func schemaFindings(tmpl *appointment.Template, strict bool) []appointment.Finding {
	res := schema.ValidateTemplate(tmpl, schema.Options{Strict: strict})

	var findings []appointment.Finding
	for _, e := range res.Errors {
		findings = append(findings, appointment.Finding{Check: checkSchema, Severity: topology.SeverityError, Resource: e.Resource, Message: e.Message})
	}
	for _, w := range res.Warnings {
		findings = append(findings, appointment.Finding{Check: checkSchema, Severity: topology.SeverityWarning, Resource: w.Resource, Message: w.Message})
	}
	return findings
}

func outputValidateResult(cmd *cobra.Command, result appointment.ValidateResult, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(out, "Validation passed: %d resources OK\n", result.Resources)
		} else {
			fmt.Fprintln(out, "Validation FAILED:")
		}
		for _, errMsg := range result.Errors {
			fmt.Fprintf(out, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(out, "  WARNING: %s\n", warnMsg)
		}
		for _, f := range result.Findings {
			if f.Severity == topology.SeverityInfo {
				fmt.Fprintf(out, "  INFO: %s: %s\n", f.Check, f.Message)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
