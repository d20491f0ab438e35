// Package options provides configuration management for the ollamacli CLI
package options

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultBackend is the default backend to use if none is specified
var DefaultBackend = "ollama" // Configurable via 'OLLAMACLI_BACKEND' (or via configuration files).

// DefaultModels is a map of backend names to their default models
var DefaultModels = map[string]string{
	"ollama": "llama2",
	"dummy":  "dummy",
}

const (
	DefaultHost        = "http://127.0.0.1:11434"
	DefaultHistoryFile = "~/.ollama-prompt-history.txt"
	DefaultCodeTheme   = "monokai"
	DefaultRefreshRate = 15
	DefaultRetries     = 2
	// DefaultTemperature matches the Ollama server's sampling default.
	DefaultTemperature = 0.8
)

// Config holds the configuration for the ollamacli CLI
type Config struct {
	Backend     string  `yaml:"backend"`
	Model       string  `yaml:"model"`
	Stream      bool    `yaml:"stream"`
	Host        string  `yaml:"host"`
	Temperature float64 `yaml:"temperature"`
	Retries     int     `yaml:"retries"`

	SystemPrompt string `yaml:"systemPrompt"`
	HistoryFile  string `yaml:"historyFile"`

	// Rendering
	CodeTheme     string `yaml:"codeTheme"`
	MarkdownStyle string `yaml:"markdownStyle"`
	WordWrap      int    `yaml:"wordWrap"`
	RefreshRate   int    `yaml:"refreshRate"`
	ShowSpinner   bool   `yaml:"showSpinner"`

	Verbose bool `yaml:"verbose"`
	Debug   bool `yaml:"debug"`
}

// RefreshInterval converts RefreshRate into the live view redraw interval.
func (c *Config) RefreshInterval() time.Duration {
	rate := c.RefreshRate
	if rate <= 0 {
		rate = DefaultRefreshRate
	}
	return time.Second / time.Duration(rate)
}

// LoadConfig loads the configuration from various sources in the following order of precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// If a config file is not found, it falls back to using defaults and flags.
func LoadConfig(path string, stderr io.Writer, flagSet *pflag.FlagSet) (*Config, error) {
	if flagSet == nil {
		flagSet = pflag.CommandLine
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	cfg := &Config{}
	v := viper.New()

	SetupViper(v, flagSet)
	SetupFlagNormalization(flagSet)

	// Read config file first
	if err := HandleConfigFile(v, path, stderr, flagSet); err != nil {
		return nil, err
	}

	// Then bind flags (so they override config)
	if err := v.BindPFlags(flagSet); err != nil {
		return nil, fmt.Errorf("unable to bind flags: %w", err)
	}

	// --no-stream is the only way to turn streaming off from the command line.
	if noStream, err := flagSet.GetBool("no-stream"); err == nil && noStream {
		v.Set("stream", false)
	}

	backend := v.GetString("backend")
	if debug, _ := flagSet.GetBool("debug"); debug {
		fmt.Fprintf(stderr, "ollamacli: backend is %q\n", backend)
	}

	// Check if model is explicitly set anywhere before setting default
	hasModel := flagSet.Changed("model") || v.InConfig("model")
	if !hasModel && IsEnvSet("OLLAMACLI_MODEL") {
		hasModel = true
		v.Set("model", os.Getenv("OLLAMACLI_MODEL"))
	}
	if !hasModel {
		if defaultModel, ok := DefaultModels[backend]; ok {
			v.Set("model", defaultModel)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return cfg, nil
}

// IsEnvSet checks if an environment variable is set
func IsEnvSet(key string) bool {
	_, exists := os.LookupEnv(key)
	return exists
}

// SetupViper configures viper with default values and settings
func SetupViper(v *viper.Viper, flagSet *pflag.FlagSet) {
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("stream", true)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("historyFile", DefaultHistoryFile)
	v.SetDefault("codeTheme", DefaultCodeTheme)
	v.SetDefault("markdownStyle", "auto")
	v.SetDefault("refreshRate", DefaultRefreshRate)
	v.SetDefault("showSpinner", true)
	v.SetDefault("retries", DefaultRetries)
	v.SetDefault("temperature", DefaultTemperature)

	v.AddConfigPath("/etc/ollamacli/")
	v.AddConfigPath("$HOME/.ollamacli")
	v.AddConfigPath(".")
	v.SetConfigName("config")

	v.SetEnvPrefix("OLLAMACLI")
	v.AutomaticEnv()
	v.BindEnv("host", "OLLAMACLI_HOST", "OLLAMA_HOST")
}

// SetupFlagNormalization configures flag normalization to handle dashes in flag names
func SetupFlagNormalization(flagSet *pflag.FlagSet) {
	normalizeFunc := flagSet.GetNormalizeFunc()
	flagSet.SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		result := normalizeFunc(fs, name)
		name = strings.ReplaceAll(string(result), "-", "")
		return pflag.NormalizedName(name)
	})
}

// HandleConfigFile handles loading the configuration file. An explicit path
// (from the argument or the --config flag) that does not exist is ignored.
func HandleConfigFile(v *viper.Viper, path string, stderr io.Writer, flagSet *pflag.FlagSet) error {
	verbose, _ := flagSet.GetBool("verbose")
	if configFlag := flagSet.Lookup("config"); configFlag != nil && configFlag.Changed {
		path = configFlag.Value.String()
	}
	if path != "" {
		if verbose {
			fmt.Fprintf(stderr, "ollamacli: trying to read config file: %s\n", path)
		}
		if _, err := os.Stat(path); err != nil {
			if verbose {
				fmt.Fprintf(stderr, "ollamacli: config file %s not accessible: %v\n", path, err)
			}
			return nil
		}
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if debug, _ := flagSet.GetBool("debug"); debug {
				fmt.Fprintln(stderr, "ollamacli: config file not found, using defaults")
			}
			return nil
		}
		return fmt.Errorf("unable to read config file: %w", err)
	}

	if verbose {
		fmt.Fprintf(stderr, "ollamacli: successfully read config from %s\n", v.ConfigFileUsed())
	}
	return nil
}
