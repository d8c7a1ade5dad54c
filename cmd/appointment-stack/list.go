package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	appointment "github.com/appointment-stack/appointment-stack-go"
)

func (a *app) listCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stack resources",
		Long: `List evaluates the stack and displays every resource with its
CloudFormation type and dependencies.

Examples:
    appointment-stack list
    appointment-stack list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, builder, err := a.evaluate(cmd.Context())
			if err != nil {
				return err
			}

			discovered := builder.Discovered()
			result := appointment.ListResult{
				Resources: make([]appointment.ListResource, 0, len(discovered)),
			}
			for name, res := range discovered {
				result.Resources = append(result.Resources, appointment.ListResource{
					Name:         name,
					Type:         res.CFType,
					Dependencies: res.Dependencies,
				})
			}

			// Sort by name for consistent output
			sort.Slice(result.Resources, func(i, j int) bool {
				return result.Resources[i].Name < result.Resources[j].Name
			})

			return outputListResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputListResult(out io.Writer, result appointment.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(out, "No resources found.")
			return nil
		}

		fmt.Fprintf(out, "Resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(out, "  %s: %s\n", res.Name, res.Type)
			if len(res.Dependencies) > 0 {
				fmt.Fprintf(out, "    depends on: %s\n", strings.Join(res.Dependencies, ", "))
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
