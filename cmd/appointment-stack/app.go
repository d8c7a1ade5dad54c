package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/logger"
	"github.com/appointment-stack/appointment-stack-go/internal/lookup"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
	"github.com/appointment-stack/appointment-stack-go/internal/topology"
	"github.com/appointment-stack/appointment-stack-go/stack"
)

// errDifferences is returned by diff --exit-code when templates differ.
var errDifferences = errors.New("templates differ")

// app holds the state shared by all commands.
type app struct {
	vip    *viper.Viper
	logger *zap.Logger
	cfg    config.Config

	verbosity int
	jsonLogs  bool
}

func newApp() *app {
	return &app{
		vip:    viper.New(),
		logger: zap.NewNop(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.Name,
		Short: "Synthesize, check and deploy the appointment stack",
		Long: `appointment-stack evaluates the appointment infrastructure into an AWS
CloudFormation template: a DynamoDB table, an SNS topic fanning out to two SQS
queues, an EventBridge bus forwarding to a backup queue and a MySQL database.

Configuration is read from appointment-stack.yaml, APPOINTMENT_STACK_* environment
variables and flags.

    appointment-stack synth -f yaml
    appointment-stack validate
    appointment-stack deploy --parameter VpcId=vpc-0abc`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	config.InstallConfigFlag(cmd)
	cmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "issue INFO (-v) and DEBUG (-vv) output")
	cmd.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "emit logs as JSON")
	cmd.PersistentFlags().String("stack-name", "", "CloudFormation stack name (overrides stack.name)")
	cmd.PersistentFlags().String("region", "", "AWS region (overrides stack.region)")

	cmd.AddCommand(
		a.synthCmd(),
		a.validateCmd(),
		a.diffCmd(),
		a.graphCmd(),
		a.listCmd(),
		a.lintCmd(),
		a.contextCmd(),
		a.deployCmd(),
		a.outputsCmd(),
		a.watchCmd(),
		newVersionCmd(),
	)

	return cmd
}

// init sets up logging and loads the configuration. Parsing succeeded at
// this point, so usage is no longer printed on errors.
func (a *app) init(cmd *cobra.Command) error {
	cmd.SilenceUsage = true

	l, err := logger.New(a.verbosity, a.jsonLogs)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.logger = l

	return a.loadConfig(cmd)
}

// loadConfig reads the configuration into a fresh viper instance.
func (a *app) loadConfig(cmd *cobra.Command) error {
	vip := viper.New()

	bindings := map[string]string{
		"stack.name":     "stack-name",
		"stack.region":   "region",
		"deploy.timeout": "timeout",
	}
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := vip.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	if err := config.InitViperConfig(cmd, vip, a.logger); err != nil {
		return err
	}
	cfg, err := config.Load(vip)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.vip = vip
	a.cfg = cfg
	a.logger.Debug("Configuration loaded",
		zap.String("stack", cfg.Stack.Name),
		zap.String("network", cfg.Network.Mode),
		zap.String("credentials", cfg.Database.Credentials))
	return nil
}

func (a *app) close() {
	logger.Sync(a.logger)
}

// evaluate composes the stack and builds its template, resolving the
// network first in lookup mode.
func (a *app) evaluate(ctx context.Context) (*appointment.Template, *template.Builder, error) {
	props := stack.Props{Config: a.cfg, Logger: a.logger}

	if a.cfg.Network.Mode == config.NetworkLookup {
		network, err := a.resolveNetwork(ctx)
		if err != nil {
			return nil, nil, err
		}
		props.Network = &network
	}

	return stack.Build(props)
}

func (a *app) resolveNetwork(ctx context.Context) (lookup.Network, error) {
	region := a.cfg.Stack.Region
	if region == "" {
		awsCfg, err := lookup.LoadAWSConfig(ctx, "")
		if err != nil {
			return lookup.Network{}, err
		}
		region = awsCfg.Region
	}

	client := func(ctx context.Context) (lookup.EC2API, error) {
		awsCfg, err := lookup.LoadAWSConfig(ctx, region)
		if err != nil {
			return nil, err
		}
		return lookup.EC2Client(awsCfg)(ctx)
	}

	cache := lookup.NewCache(a.cfg.Network.ContextFile, a.logger)
	return lookup.NewResolver(cache, region, client, a.logger).DefaultVPC(ctx)
}

// topologyOptions returns the structural expectations of the configuration.
func (a *app) topologyOptions() topology.Options {
	return topology.Options{
		Source:             a.cfg.Events.Source,
		ConfirmOpenIngress: a.cfg.Database.ConfirmOpenIngress,
		ExpectedExports:    stack.ExpectedExports(a.cfg),
	}
}

// render encodes the template as json or yaml.
func render(t *appointment.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(t)
	case "yaml":
		return template.ToYAML(t)
	}
	return nil, fmt.Errorf("unknown format: %s (use 'json' or 'yaml')", format)
}

// writeOutput writes data to path, or to w when path is empty.
func (a *app) writeOutput(w io.Writer, data []byte, path string) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	a.logger.Info("Template written", zap.String("file", path), zap.Int("bytes", len(data)))
	return nil
}

// errorLines splits a joined error into one message per line.
func errorLines(err error) []string {
	return strings.Split(err.Error(), "\n")
}
