// Package root contains the root command for the application
package root

import (
	"encoding/json"
	"fmt"

	"fjacquet/csv-ingest/internal/config"
	"fjacquet/csv-ingest/internal/container"
	"fjacquet/csv-ingest/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log = logging.NewLogrusAdapter("info", "text")

	// AppConfig is the configuration loaded before any subcommand runs
	AppConfig *config.Config

	// AppContainer holds the wired services
	AppContainer *container.Container

	// ConfigFile overrides the configuration search path
	ConfigFile string

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "csv-ingest",
		Short: "A CLI tool to ingest credit card CSV statements and categorize transactions.",
		Long: `csv-ingest imports credit card statement CSV files using stored column mappings,
skips duplicates, and assigns a category to every transaction through the cache,
the external classifier, the keyword table and the default category.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to csv-ingest!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initContainer(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			Shutdown()
		},
	}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "Configuration file (default $HOME/.csv-ingest/config.yaml)")
}

// initContainer loads the configuration and wires the container unless one
// was already provided with SetContainer.
func initContainer(cmd *cobra.Command) error {
	if AppContainer != nil {
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if ConfigFile != "" {
		cfg, err = config.InitializeConfigFromFile(ConfigFile)
	} else {
		cfg, err = config.InitializeConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	AppConfig = cfg
	Log = logging.NewLogrusAdapterFromLogger(config.ConfigureLoggingFromConfig(cfg))

	c, err := container.NewContainer(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	AppContainer = c
	return nil
}

// SetContainer installs a prebuilt container, mostly for tests.
func SetContainer(c *container.Container) {
	AppContainer = c
	if c != nil {
		AppConfig = c.GetConfig()
		Log = c.GetLogger()
	}
}

// GetContainer returns the wired container.
func GetContainer() (*container.Container, error) {
	if AppContainer == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return AppContainer, nil
}

// GetLogger returns the shared logger.
func GetLogger() logging.Logger {
	return Log
}

// Shutdown closes the container. It is safe to call more than once.
func Shutdown() {
	if AppContainer == nil {
		return
	}
	if err := AppContainer.Close(); err != nil {
		Log.WithError(err).Warn("Failed to close services")
	}
	AppContainer = nil
}

// PrintJSON writes v as indented JSON to the command output.
func PrintJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
