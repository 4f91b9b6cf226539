package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	internal "github.com/ZanzyTHEbar/boxel-survey/survey"
	"github.com/ZanzyTHEbar/boxel-survey/survey/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the config is loaded.
type app struct {
	configFile string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
	slog   *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: internal.GetLogger()}

	root := &cobra.Command{
		Use:           internal.DefaultAppName,
		Short:         "Systematically survey boxels of the galaxy",
		Long:          "boxel-survey names, navigates and tracks the search of boxel regions: which regions are empty, which systems are visited and where to go next.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default "+internal.DefaultGlobalConfigFile+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newParseCmd(),
		newCoordsCmd(),
		newParentCmd(),
		newChildrenCmd(),
		newContainsCmd(),
		newEmptyCmd(a),
		newRecordCmd(a),
		newSearchCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = internal.GetLevelLogger(level).Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
	a.slog = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slogLevel(level)}))
	slog.SetDefault(a.slog)

	a.logger.Debug().Str("config", a.configFile).Str("level", level).Msg("Configuration loaded")
	return nil
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal", "panic":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logger := internal.GetLogger()
		logger.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
