package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/appointment-stack/appointment-stack-go/internal/lint"
)

// lintIssue is the JSON form of a lint issue.
type lintIssue struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Rule       string `json:"rule"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (a *app) lintCmd() *cobra.Command {
	var (
		outputFormat string
		rules        []string
		includeTests bool
	)

	cmd := &cobra.Command{
		Use:   "lint <dir>...",
		Short: "Check stack declarations for issues",
		Long: `Lint checks the Go source of composition packages for common issues.

Rules:
    APS001: Use pseudo-parameter constants instead of hardcoded strings
    APS002: Use intrinsic types instead of raw intrinsic maps
    APS003: Avoid open CIDR literals
    APS004: Do not hardcode passwords
    APS005: Reference logical IDs through declared identifiers

Examples:
    appointment-stack lint ./stack
    appointment-stack lint ./... --rules APS003,APS004`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := lint.Options{EnabledRules: rules, IncludeTests: includeTests}

			var issues []lint.Issue
			success := true
			for _, dir := range args {
				result, err := lint.LintPackage(dir, opts)
				if err != nil {
					return fmt.Errorf("linting %s: %w", dir, err)
				}
				issues = append(issues, result.Issues...)
				success = success && result.Success
			}

			if err := outputLintIssues(cmd.OutOrStdout(), issues, outputFormat); err != nil {
				return err
			}
			if !success {
				return fmt.Errorf("lint found errors")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Rules to enable (default: all)")
	cmd.Flags().BoolVar(&includeTests, "include-tests", false, "Lint _test.go files too")

	return cmd
}

func outputLintIssues(out io.Writer, issues []lint.Issue, format string) error {
	switch format {
	case "json":
		converted := make([]lintIssue, 0, len(issues))
		for _, issue := range issues {
			converted = append(converted, lintIssue{
				File:       issue.File,
				Line:       issue.Line,
				Column:     issue.Column,
				Severity:   issue.Severity.String(),
				Message:    issue.Message,
				Rule:       issue.Rule,
				Suggestion: issue.Suggestion,
			})
		}
		data, err := json.MarshalIndent(map[string]any{"issues": converted}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		if len(issues) == 0 {
			fmt.Fprintln(out, "No issues found.")
			return nil
		}
		for _, issue := range issues {
			fmt.Fprintf(out, "%s:%d:%d: %s: %s [%s]\n",
				issue.File, issue.Line, issue.Column,
				issue.Severity.String(), issue.Message, issue.Rule)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
