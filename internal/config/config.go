// Package config loads the appointment-stack configuration from flags,
// environment variables and an optional configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Name is the command name, the configuration file base name and the
// environment variable prefix.
const Name = "appointment-stack"

// EnvPrefix is the prefix of environment variables bound to configuration keys.
const EnvPrefix = "APPOINTMENT_STACK_"

// Network modes.
const (
	NetworkParameter = "parameter"
	NetworkStatic    = "static"
	NetworkLookup    = "lookup"
)

// Credential modes.
const (
	CredentialsGenerated = "generated"
	CredentialsManaged   = "managed"
	CredentialsParameter = "parameter"
)

// Config is the full appointment-stack configuration.
type Config struct {
	Stack    StackConfig    `mapstructure:"stack"`
	Network  NetworkConfig  `mapstructure:"network"`
	Events   EventsConfig   `mapstructure:"events"`
	Database DatabaseConfig `mapstructure:"database"`
	Outputs  OutputsConfig  `mapstructure:"outputs"`
	Deploy   DeployConfig   `mapstructure:"deploy"`
}

// StackConfig names the CloudFormation stack.
type StackConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Region      string `mapstructure:"region"`
	// Tags is a list rather than a map: viper lowercases map keys and AWS
	// tag keys are case-sensitive.
	Tags []Tag `mapstructure:"tags"`
}

// Tag is a stack-wide tag.
type Tag struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

// TagMap returns the tags keyed by tag key.
func (s StackConfig) TagMap() map[string]string {
	tags := make(map[string]string, len(s.Tags))
	for _, t := range s.Tags {
		tags[t.Key] = t.Value
	}
	return tags
}

// NetworkConfig selects how the database VPC and subnets are resolved.
type NetworkConfig struct {
	Mode        string   `mapstructure:"mode"`
	VpcID       string   `mapstructure:"vpc_id"`
	SubnetIDs   []string `mapstructure:"subnet_ids"`
	VpcCIDR     string   `mapstructure:"vpc_cidr"`
	ContextFile string   `mapstructure:"context_file"`
}

// EventsConfig configures the event bus and its routing rule.
type EventsConfig struct {
	BusName string `mapstructure:"bus_name"`
	Source  string `mapstructure:"source"`
}

// DatabaseConfig configures the relational database instance.
type DatabaseConfig struct {
	Engine              string `mapstructure:"engine"`
	EngineVersion       string `mapstructure:"engine_version"`
	InstanceClass       string `mapstructure:"instance_class"`
	AllocatedStorage    int    `mapstructure:"allocated_storage"`
	MaxAllocatedStorage int    `mapstructure:"max_allocated_storage"`
	MultiAZ             bool   `mapstructure:"multi_az"`
	Name                string `mapstructure:"name"`
	Username            string `mapstructure:"username"`
	Port                int    `mapstructure:"port"`
	Credentials         string `mapstructure:"credentials"`
	PubliclyAccessible  bool   `mapstructure:"publicly_accessible"`
	IngressCIDR         string `mapstructure:"ingress_cidr"`
	AllowPublicIngress  bool   `mapstructure:"allow_public_ingress"`
	ConfirmOpenIngress  bool   `mapstructure:"confirm_open_ingress"`
}

// OutputsConfig adjusts exported values.
type OutputsConfig struct {
	// EventBusNameAsArn exports the bus ARN under AppointmentEventBusName.
	EventBusNameAsArn bool `mapstructure:"event_bus_name_as_arn"`
}

// DeployConfig configures stack deployment.
type DeployConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers the default of every configuration key.
// Keys without a default are not visible to environment binding.
func SetDefaults(vip *viper.Viper) {
	vip.SetDefault("stack.name", "AppointmentCdkStack")
	vip.SetDefault("stack.description", "Appointment scheduling infrastructure")
	vip.SetDefault("stack.region", "")
	vip.SetDefault("stack.tags", []Tag{})

	vip.SetDefault("network.mode", NetworkParameter)
	vip.SetDefault("network.vpc_id", "")
	vip.SetDefault("network.subnet_ids", []string{})
	vip.SetDefault("network.vpc_cidr", "172.31.0.0/16")
	vip.SetDefault("network.context_file", "context.json")

	vip.SetDefault("events.bus_name", "AppointmentEvents")
	vip.SetDefault("events.source", "appointment.handler")

	vip.SetDefault("database.engine", "mysql")
	vip.SetDefault("database.engine_version", "8.0")
	vip.SetDefault("database.instance_class", "db.t3.micro")
	vip.SetDefault("database.allocated_storage", 20)
	vip.SetDefault("database.max_allocated_storage", 100)
	vip.SetDefault("database.multi_az", false)
	vip.SetDefault("database.name", "appointment_db")
	vip.SetDefault("database.username", "dbadmin")
	vip.SetDefault("database.port", 3306)
	vip.SetDefault("database.credentials", CredentialsGenerated)
	vip.SetDefault("database.publicly_accessible", false)
	vip.SetDefault("database.ingress_cidr", "")
	vip.SetDefault("database.allow_public_ingress", false)
	vip.SetDefault("database.confirm_open_ingress", false)

	vip.SetDefault("outputs.event_bus_name_as_arn", false)

	vip.SetDefault("deploy.timeout", 30*time.Minute)
}

// Defaults returns the configuration with every key at its default.
func Defaults() Config {
	vip := viper.New()
	SetDefaults(vip)
	cfg, err := Load(vip)
	if err != nil {
		// Defaults are static and always decode.
		panic(err)
	}
	return cfg
}

// Load decodes the viper settings into a Config and validates it.
func Load(vip *viper.Viper) (Config, error) {
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	var errs []error

	if c.Stack.Name == "" {
		errs = append(errs, errors.New("stack.name must not be empty"))
	}
	seen := make(map[string]bool, len(c.Stack.Tags))
	for i, t := range c.Stack.Tags {
		switch {
		case t.Key == "":
			errs = append(errs, fmt.Errorf("stack.tags[%d]: key must not be empty", i))
		case seen[t.Key]:
			errs = append(errs, fmt.Errorf("stack.tags: duplicate key %q", t.Key))
		}
		seen[t.Key] = true
	}

	switch c.Network.Mode {
	case NetworkParameter, NetworkLookup:
	case NetworkStatic:
		if c.Network.VpcID == "" {
			errs = append(errs, errors.New("network.vpc_id is required in static mode"))
		}
		if len(c.Network.SubnetIDs) == 0 {
			errs = append(errs, errors.New("network.subnet_ids is required in static mode"))
		}
		if c.Network.VpcCIDR == "" {
			errs = append(errs, errors.New("network.vpc_cidr is required in static mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("network.mode %q is not one of parameter, static, lookup", c.Network.Mode))
	}
	if c.Network.VpcCIDR != "" {
		if _, _, err := net.ParseCIDR(c.Network.VpcCIDR); err != nil {
			errs = append(errs, fmt.Errorf("network.vpc_cidr: %w", err))
		}
	}
	if c.Network.Mode == NetworkLookup && c.Network.ContextFile == "" {
		errs = append(errs, errors.New("network.context_file is required in lookup mode"))
	}

	if c.Events.BusName == "" {
		errs = append(errs, errors.New("events.bus_name must not be empty"))
	}
	if c.Events.Source == "" {
		errs = append(errs, errors.New("events.source must not be empty"))
	}

	db := c.Database
	switch db.Credentials {
	case CredentialsGenerated, CredentialsManaged, CredentialsParameter:
	default:
		errs = append(errs, fmt.Errorf("database.credentials %q is not one of generated, managed, parameter", db.Credentials))
	}
	if db.AllocatedStorage < 20 {
		errs = append(errs, fmt.Errorf("database.allocated_storage %d is below the 20 GiB minimum", db.AllocatedStorage))
	}
	if db.MaxAllocatedStorage != 0 && db.MaxAllocatedStorage < db.AllocatedStorage {
		errs = append(errs, fmt.Errorf("database.max_allocated_storage %d is below allocated_storage %d", db.MaxAllocatedStorage, db.AllocatedStorage))
	}
	if db.Port < 1 || db.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port %d is out of range", db.Port))
	}
	if db.Name == "" || db.Username == "" {
		errs = append(errs, errors.New("database.name and database.username must not be empty"))
	}
	if db.IngressCIDR != "" {
		if _, _, err := net.ParseCIDR(db.IngressCIDR); err != nil {
			errs = append(errs, fmt.Errorf("database.ingress_cidr: %w", err))
		}
	}

	if c.Deploy.Timeout <= 0 {
		errs = append(errs, errors.New("deploy.timeout must be positive"))
	}

	return errors.Join(errs...)
}

// InitViperConfig locates and reads the configuration file and binds
// environment variables for a command.
func InitViperConfig(cmd *cobra.Command, vip *viper.Viper, logger *zap.Logger) error {
	SetDefaults(vip)

	if v, err := cmd.Flags().GetString("config"); err == nil && v != "" {
		vip.SetConfigFile(v)
	} else {
		vip.SetConfigName(Name)
		vip.AddConfigPath(".")

		if runtime.GOOS == "windows" {
			vip.AddConfigPath("C:\\ProgramData\\" + Name)
		} else {
			vip.AddConfigPath("/etc/" + Name)
		}

		if binPath, err := os.Executable(); err != nil {
			logger.Warn("Failed to get current executable path, not adding it as a config dir", zap.Error(err))
		} else {
			vip.AddConfigPath(filepath.Dir(binPath))
		}
	}
	if err := vip.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if errors.As(err, &e) {
			logger.Info("No configuration file. Using defaults, env variables and flags.")
		} else {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
	} else {
		logger.Info("Using configuration file", zap.String("file", vip.ConfigFileUsed()))
	}

	vip.SetEnvPrefix(strings.TrimSuffix(EnvPrefix, "_"))
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	// Keys contain underscores themselves, so environment names are matched
	// against the known keys instead of split on "_".
	known := make(map[string]string)
	for _, key := range vip.AllKeys() {
		known[EnvPrefix+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	for _, e := range os.Environ() {
		name, _, _ := strings.Cut(e, "=")
		if !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key, ok := known[name]
		if !ok {
			logger.Warn("Ignoring unknown environment variable", zap.String("name", name))
			continue
		}
		if err := vip.BindEnv(key, name); err != nil {
			return fmt.Errorf("could not bind environment variable: %w", err)
		}
	}

	return nil
}

// InstallConfigFlag adds a config flag to the command.
func InstallConfigFlag(cmd *cobra.Command) *string {
	return cmd.PersistentFlags().String("config", "", "use a specific configuration file")
}
