// Package stack composes the appointment infrastructure: the appointments
// table, the notification fan-out, the event routing and the MySQL database.
//
// The composition is evaluated into a template builder from configuration
// and, in lookup mode, a resolved network.
package stack

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	appointment "github.com/appointment-stack/appointment-stack-go"
	"github.com/appointment-stack/appointment-stack-go/internal/config"
	"github.com/appointment-stack/appointment-stack-go/internal/lookup"
	"github.com/appointment-stack/appointment-stack-go/internal/template"
)

// ErrMissingNetwork is returned in lookup mode when no network was resolved.
var ErrMissingNetwork = errors.New("lookup mode requires a resolved network")

// Props are the inputs of the composition.
type Props struct {
	Config config.Config
	// Network is the looked-up network, required in lookup mode.
	Network *lookup.Network
	Logger  *zap.Logger
}

// New evaluates the composition into a template builder. The builder has
// not been built yet; callers call Build on it.
func New(props Props) (*template.Builder, error) {
	if err := props.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := props.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := template.NewBuilder(
		template.WithDescription(props.Config.Stack.Description),
		template.WithTags(props.Config.Stack.TagMap()),
		template.WithLogger(logger),
	)

	net, err := addNetwork(b, props.Config.Network, props.Network)
	if err != nil {
		return nil, err
	}

	addTable(b)
	addFanout(b)
	addEventRouting(b, props.Config.Events)
	addSecurityGroup(b, props.Config.Database, net)
	addDatabase(b, props.Config.Database, net)
	addOutputs(b, props.Config)

	logger.Debug("Composed appointment stack",
		zap.String("network", props.Config.Network.Mode),
		zap.String("credentials", props.Config.Database.Credentials))

	return b, nil
}

// Build evaluates the composition and builds its template.
func Build(props Props) (*appointment.Template, *template.Builder, error) {
	b, err := New(props)
	if err != nil {
		return nil, nil, err
	}
	t, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building template: %w", err)
	}
	return t, b, nil
}
