package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/gosweep/internal/config"
	"github.com/me/gosweep/internal/logging"
)

// EnvConfig names the config file used when --config is not given.
const EnvConfig = "GOSWEEP_CONFIG"

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.RunnerConfig
	logger *slog.Logger
)

// defaultConfigPath returns the config file from GOSWEEP_CONFIG, or "" for built-in defaults.
func defaultConfigPath() string {
	return os.Getenv(EnvConfig)
}

// NewRootCmd creates the root cobra command for the gosweep CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gosweep",
		Short: "gosweep: concurrent parameter sweeps for the EPOS simulator",
		Long: `gosweep expands a template configuration over the cartesian product of
parameter values, runs the simulator once per combination with bounded
parallelism and spaced launches, and collects every run's summary into a
CSV report.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(cmd)
			if err != nil {
				return err
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Runner config YAML (or GOSWEEP_CONFIG env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newExpandCmd(),
		newRunsCmd(),
	)

	return root
}

// loadConfig reads --config over the defaults, then applies the global flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.RunnerConfig, error) {
	c := config.DefaultRunnerConfig()
	if flagConfig != "" {
		var err error
		if c, err = config.Load(flagConfig); err != nil {
			return c, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if flagDebug {
		c.LogLevel = "debug"
	}
	return c, nil
}

// out returns the writer for program output.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
