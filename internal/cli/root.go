// Package cli implements the kbdlightd command-line interface using Cobra
// "run" starts the daemon; the other commands talk to a running daemon
// over its gRPC control socket
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quentinrf/kbdlightd/internal/config"
)

// app carries the flags and the configuration shared by all commands
// cfg is loaded once per invocation by the root PersistentPreRunE
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "kbdlightd",
		Short: "Keyboard backlight activity daemon",
		Long: `kbdlightd turns the keyboard backlight on while you type and off once
the keyboard has been idle for a while. Changes made with the vendor
hotkey are followed, and the whole behaviour can be toggled at runtime.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/kbdlightd/config.toml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: console or json (overrides config)")

	cmd.AddCommand(
		a.newRunCmd(),
		a.newToggleCmd(),
		a.newEnableCmd(true),
		a.newEnableCmd(false),
		a.newStatusCmd(),
		a.newHistoryCmd(),
		a.newKeyboardsCmd(),
	)
	return cmd
}

// Execute runs the root command. Called from main.go
func Execute(version string) {
	rootCmd := newRootCmd()
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		loaded.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		loaded.Logging.Format = a.logFormat
	}
	a.cfg = loaded

	return setupLogging(a.cfg.Logging, cmd.ErrOrStderr())
}

// setupLogging configures the global zerolog logger
func setupLogging(lc config.LoggingConfig, out io.Writer) error {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	switch lc.Format {
	case "json":
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
	}
	return nil
}
