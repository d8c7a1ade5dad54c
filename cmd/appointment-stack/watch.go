package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/differ"
)

type watchOptions struct {
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// watchCmd creates the "watch" subcommand for re-evaluating on changes.
func (a *app) watchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate on configuration changes",
		Long: `Watch monitors the configuration file and the context file and re-evaluates
the stack whenever one of them changes.

The watch command:
- Prints the diff against the previous evaluation
- Rewrites the output template when --output is set
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    appointment-stack watch
    appointment-stack watch -o template.json
    appointment-stack watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Template file rewritten after each evaluation")

	return cmd
}

// watchedFiles returns the absolute paths of the files triggering a
// re-evaluation.
func (a *app) watchedFiles() ([]string, error) {
	var files []string
	for _, f := range []string{a.vip.ConfigFileUsed(), a.cfg.Network.ContextFile} {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		files = append(files, abs)
	}
	return files, nil
}

func (a *app) runWatch(cmd *cobra.Command, opts watchOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	files, err := a.watchedFiles()
	if err != nil {
		return err
	}
	// Editors replace files on save, so parent directories are watched.
	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range files {
		watched[f] = true
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fmt.Fprintf(out, "Watching: %s\n", dir)
	}

	fmt.Fprintln(out, "Running initial evaluation...")
	previous := a.watchEvaluate(ctx, cmd, nil, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(out, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(out, "\n[%s] Change detected, re-evaluating...\n", time.Now().Format("15:04:05"))
			if err := a.loadConfig(cmd); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration error: %v\n", err)
				continue
			}
			previous = a.watchEvaluate(ctx, cmd, previous, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("Watch error", zap.Error(err))

		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

// watchEvaluate evaluates the stack, prints the diff against previous and
// rewrites the output file. It returns the template to compare the next
// evaluation against, which is previous when evaluation failed.
func (a *app) watchEvaluate(ctx context.Context, cmd *cobra.Command, previous *appointment.Template, opts watchOptions) *appointment.Template {
	out := cmd.OutOrStdout()

	tmpl, _, err := a.evaluate(ctx)
	if err != nil {
		for _, line := range errorLines(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", line)
		}
		return previous
	}

	if previous == nil {
		fmt.Fprintf(out, "Evaluated %d resources\n", len(tmpl.Resources))
	} else {
		result, err := differ.Compare(previous, tmpl, differ.Options{})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return tmpl
		}
		printDiffText(out, result)
	}

	if opts.outputFile != "" {
		data, err := render(tmpl, opts.outputFormat)
		if err == nil {
			err = a.writeOutput(out, data, opts.outputFile)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	return tmpl
}
