package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dl-alexandre/sheetmirror/internal/config"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/dl-alexandre/sheetmirror/pkg/version"
	"github.com/spf13/cobra"
)

var (
	globalFlags types.GlobalFlags
	logger      logging.Logger = logging.NewNoOpLogger()
	httpDebug   *logging.DebugTransport

	loadedConfig *config.Config
	configErr    error
)

var rootCmd = &cobra.Command{
	Use:   "sheetmirror",
	Short: "Mirror Drive files listed in a Google Sheet onto an FTP server",
	Long: `sheetmirror watches a worksheet whose rows name a destination folder, a video
link and an image link, and keeps an FTP server in step with the linked Drive files.

Unchanged files are never re-transferred, and a file being replaced is kept as a
backup until its replacement has been uploaded.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateGlobalFlags(); err != nil {
			return err
		}

		loadedConfig, configErr = config.Load(globalFlags.Config)

		var err error
		logger, httpDebug, err = logging.NewDebugLoggerWithTransport(buildLogConfig(loadedConfig))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version, commit and build information of sheetmirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := GetGlobalFlags()
		info := version.Get()
		if flags.OutputFormat == types.OutputFormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		}
		return NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose).WriteSuccess("version", info)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Log every Google API request")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	rootCmd.AddCommand(versionCmd)
}

func validateGlobalFlags() error {
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s", globalFlags.OutputFormat)
	}
	return nil
}

// buildLogConfig merges the command-line flags with the configured log settings.
// Flags win.
func buildLogConfig(cfg *config.Config) logging.LogConfig {
	logConfig := logging.DefaultLogConfig()
	logConfig.OutputFile = globalFlags.LogFile
	logConfig.EnableConsole = !globalFlags.Quiet
	logConfig.EnableDebug = globalFlags.Debug

	if cfg != nil {
		if logConfig.OutputFile == "" {
			logConfig.OutputFile = cfg.LogFile
		}
		switch cfg.LogLevel {
		case "quiet":
			logConfig.EnableConsole = false
		case "verbose", "debug":
			logConfig.Level = logging.DEBUG
		}
	}

	if globalFlags.Verbose || globalFlags.Debug {
		logConfig.Level = logging.DEBUG
	}
	return logConfig
}

// currentConfig returns the configuration loaded for this invocation
func currentConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, utils.NewCLIError(utils.ErrCodeInvalidArgument, configErr.Error()).WithCause(configErr).Err()
	}
	if loadedConfig == nil {
		return nil, utils.NewCLIError(utils.ErrCodeConfigurationMissing, "configuration was not loaded").Err()
	}
	return loadedConfig, nil
}

// Execute runs the root command and exits with the code of the failure, if any
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(utils.ExitInvalidArgument)
	return nil
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}
