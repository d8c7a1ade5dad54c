package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appointment-stack/appointment-stack-go/internal/lookup"
)

// contextCmd manages the cached lookup results.
func (a *app) contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage cached lookup values",
		Long: `Lookups (the default VPC and its public subnets in lookup network mode) are
cached in the context file so that synthesis stays offline and deterministic.
Clear an entry to look it up again on the next evaluation.`,
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List cached lookup values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache := lookup.NewCache(a.cfg.Network.ContextFile, a.logger)
			entries, err := cache.Entries()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No cached context in %s.\n", cache.Path())
				return nil
			}
			keys, err := cache.Keys()
			if err != nil {
				return err
			}
			for _, k := range keys {
				value, err := json.Marshal(entries[k])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n    %s\n", k, value)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print the raw context as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear [keys...]",
		Short: "Remove cached lookup values (all when no key is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := lookup.NewCache(a.cfg.Network.ContextFile, a.logger)
			removed, err := cache.Clear(args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(removed) == 0 {
				fmt.Fprintln(out, "Nothing to clear.")
				return nil
			}
			for _, k := range removed {
				fmt.Fprintf(out, "Cleared %s\n", k)
			}
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}
