// Package config holds the configuration of the ibmq command.  Values come
// from defaults, an optional YAML file, IBMQ_* environment variables, and
// command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lanl/ibmq"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the complete configuration of the ibmq command.
type Config struct {
	Accounts AccountsConfig `mapstructure:"accounts"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fake     FakeConfig     `mapstructure:"fake"`
}

// AccountsConfig locates the stored credentials.
type AccountsConfig struct {
	File string `mapstructure:"file"` // Accounts file path
}

// BackendConfig controls how circuits are run.
type BackendConfig struct {
	Name         string        `mapstructure:"name"`          // Device to run on
	Shots        int           `mapstructure:"shots"`         // Repetitions per circuit
	Monitor      bool          `mapstructure:"monitor"`       // Display job status while waiting
	PollInterval time.Duration `mapstructure:"poll_interval"` // Interval between status queries
	Seed         int64         `mapstructure:"seed"`          // Simulator seed (0 for none)

	Noise ibmq.NoiseModel `mapstructure:"noise"` // Errors the local simulator injects
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`       // debug, info, warn, or error
	Development bool   `mapstructure:"development"` // Human-readable console output
}

// FakeConfig controls the local fake execution service.
type FakeConfig struct {
	Addr    string `mapstructure:"addr"`    // Listen address
	Token   string `mapstructure:"token"`   // Token clients must present
	Device  string `mapstructure:"device"`  // ibmqx4 or simulator
	Qubits  int    `mapstructure:"qubits"`  // Width of the simulator device
	Metrics bool   `mapstructure:"metrics"` // Serve Prometheus metrics on /metrics
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Accounts: AccountsConfig{
			File: ibmq.DefaultAccountsPath(),
		},
		Backend: BackendConfig{
			Shots:        1024,
			Monitor:      true,
			PollInterval: ibmq.DefaultPollInterval,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Fake: FakeConfig{
			Addr:   "127.0.0.1:8085",
			Token:  "fake-token",
			Device: "ibmqx4",
			Qubits: 8,
		},
	}
}

// SetDefaults registers every default value with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("accounts.file", defaults.Accounts.File)

	v.SetDefault("backend.name", defaults.Backend.Name)
	v.SetDefault("backend.shots", defaults.Backend.Shots)
	v.SetDefault("backend.monitor", defaults.Backend.Monitor)
	v.SetDefault("backend.poll_interval", defaults.Backend.PollInterval)
	v.SetDefault("backend.seed", defaults.Backend.Seed)
	v.SetDefault("backend.noise.depolarizing_1q", defaults.Backend.Noise.Depolarizing1Q)
	v.SetDefault("backend.noise.depolarizing_2q", defaults.Backend.Noise.Depolarizing2Q)
	v.SetDefault("backend.noise.readout", defaults.Backend.Noise.Readout)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.development", defaults.Logging.Development)

	v.SetDefault("fake.addr", defaults.Fake.Addr)
	v.SetDefault("fake.token", defaults.Fake.Token)
	v.SetDefault("fake.device", defaults.Fake.Device)
	v.SetDefault("fake.qubits", defaults.Fake.Qubits)
	v.SetDefault("fake.metrics", defaults.Fake.Metrics)
}

// Init prepares v to read the configuration file (cfgFile, or config.yaml in
// ConfigDir or the working directory) and IBMQ_* environment variables.  A
// missing configuration file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	// IBMQ_BACKEND_NAME overrides backend.name, and so on.
	v.SetEnvPrefix("IBMQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the directory searched for config.yaml.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ibmq")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ibmq"
	}
	return filepath.Join(home, ".config", "ibmq")
}

// ValidationError represents a single invalid setting.
type ValidationError struct {
	Field   string // Configuration key
	Value   any    // Offending value
	Message string // What is wrong with it
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted values of logging.level.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns every problem
// found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	if c.Backend.Shots <= 0 {
		errs = append(errs, ValidationError{"backend.shots", c.Backend.Shots, "must be positive"})
	}
	if c.Backend.PollInterval <= 0 {
		errs = append(errs, ValidationError{"backend.poll_interval", c.Backend.PollInterval, "must be positive"})
	}
	if err := c.Backend.Noise.Validate(); err != nil {
		errs = append(errs, ValidationError{"backend.noise", c.Backend.Noise, "probabilities must lie in [0, 1]"})
	}
	valid := false
	for _, l := range ValidLogLevels() {
		if strings.EqualFold(c.Logging.Level, l) {
			valid = true
		}
	}
	if !valid {
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level,
			"must be one of " + strings.Join(ValidLogLevels(), ", ")})
	}
	switch c.Fake.Device {
	case "ibmqx4", "simulator":
	default:
		errs = append(errs, ValidationError{"fake.device", c.Fake.Device, "must be ibmqx4 or simulator"})
	}
	if c.Fake.Qubits <= 0 || c.Fake.Qubits > ibmq.DefaultMaxQubits {
		errs = append(errs, ValidationError{"fake.qubits", c.Fake.Qubits,
			fmt.Sprintf("must be between 1 and %d", ibmq.DefaultMaxQubits)})
	}
	return errs
}

// Logger builds the zap logger described by the logging settings.  Logs go to
// standard error.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
