package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/recordsync/internal/config"
)

// Config holds the CLI configuration loaded from config files, environment
// variables and .env files. Bridge settings are read separately through
// internal/config so the server and the CLI share one source.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// KindsFile overrides the embedded record kind profiles.
	KindsFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.recordsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".recordsync")
	}

	// a missing config file is fine
	_ = viper.ReadInConfig()

	return &Config{
		Verbose:    viper.GetBool("verbose"),
		Quiet:      viper.GetBool("quiet"),
		NoColor:    viper.GetBool("no-color"),
		Format:     viper.GetString("format"),
		ConfigFile: viper.ConfigFileUsed(),
		KindsFile:  config.GetString(config.KeyKindsFile),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:  getEnvOrDefault("LOG_OUTPUT", "stderr"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
	}, nil
}

// UpdateFromFlags applies parsed flag values. Flags take precedence over
// config files and the environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, kindsFile string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if kindsFile != "" {
		c.KindsFile = kindsFile
	}
}

// loadEnvFiles loads .env then .env.local. godotenv never overrides a
// variable that is already set, so the first file wins.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
