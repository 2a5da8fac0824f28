// Package config loads magritte's runtime configuration from a YAML file
// plus environment overrides.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// DatabaseParams holds the connection parameters for the primary
// PostgreSQL database: source polling, sink writes and evaluation-context
// queries all share one pool built from these.
type DatabaseParams struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// ConnectionString renders p as a libpq-style connection URL suitable for
// pgxpool.ParseConfig.
func (p DatabaseParams) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.DBName)
}

// SourceRunParams controls the source poller's cadence.
type SourceRunParams struct {
	MillisPerCycle  int `yaml:"millis_per_cycle"`
	DatapointsToRun int `yaml:"datapoints_to_run"`
}

// SourceQueryParams describes the table the source polls.
type SourceQueryParams struct {
	KeyName       string   `yaml:"key_name"`
	TimestampName string   `yaml:"timestamp_name"`
	FluentNames   []string `yaml:"fluent_names"`
	FromTable     string   `yaml:"from_table"`
	OrderBy       string   `yaml:"order_by"`
	RowsToFetch   int      `yaml:"rows_to_fetch"`
}

// SourceParams bundles the source's run and query configuration.
type SourceParams struct {
	RunParams   SourceRunParams   `yaml:"run_params"`
	QueryParams SourceQueryParams `yaml:"query_params"`
}

// SinkParams configures the sink.
type SinkParams struct {
	SubscribesTo []string `yaml:"subscribes_to"`
	OnlyBoolean  bool     `yaml:"only_boolean"`
}

// ObservabilityParams configures the ambient logging/metrics/tracing
// stack.
type ObservabilityParams struct {
	LogLevel       string `yaml:"log_level"`
	MetricsAddr    string `yaml:"metrics_addr"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// Config is magritte's full runtime configuration.
type Config struct {
	Database      DatabaseParams      `yaml:"database"`
	Source        SourceParams        `yaml:"source"`
	Sink          SinkParams          `yaml:"sink"`
	Observability ObservabilityParams `yaml:"observability"`
}

// CommandLineArgs are the flags accepted by cmd/magritte. Only the
// config file path is a flag; everything else lives in the YAML file,
// matching the original implementation's clap-based CommandLineArgs
// carrying just a config_path.
type CommandLineArgs struct {
	ConfigPath string
}

// ParseArgs parses args (typically os.Args[1:]) into a CommandLineArgs.
func ParseArgs(args []string) (CommandLineArgs, error) {
	fs := flag.NewFlagSet("magritte", flag.ContinueOnError)
	configPath := fs.String("config", "./conf/magritte.yaml", "path to the configuration file")
	if err := fs.Parse(args); err != nil {
		return CommandLineArgs{}, err
	}
	return CommandLineArgs{ConfigPath: *configPath}, nil
}

// Load reads and parses the YAML configuration at path. Before parsing,
// it loads a ".env" file from the current working directory (if present)
// into the process environment via godotenv, so applyEnvOverrides can pick
// up secrets kept out of the YAML file (e.g. database passwords in local
// development).
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override the database
// password (and only the password: everything else is expected to be
// environment-specific only by way of separate config files) without
// committing a secret to the YAML file.
func applyEnvOverrides(cfg *Config) {
	if pw := os.Getenv("MAGRITTE_DB_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}
}

// defaultPollInterval is a one-second floor for a misconfigured (zero or
// negative) MillisPerCycle. Nothing in this package applies it; the source
// package falls back to its own one-second interval.
const defaultPollInterval = time.Second
