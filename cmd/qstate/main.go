package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/qstate/internal/config"
	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/internal/replay"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	noDev      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "qstate",
		Short: "Inspect and replay reactive state trees",
		Long: `qstate exercises the fine-grained reactive state layer.

Load a JSON state document, check that it can be tracked, replay
scripted reads and writes against it, or serve it over HTTP with
a live WebSocket stream of notifications.

  • check   verify a state document
  • replay  run a script and print the event log
  • serve   start the development server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to qstate.json (default: nearest in working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flags.noDev, "no-dev", false, "Disable development checks")

	rootCmd.AddCommand(
		checkCmd(flags),
		replayCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads qstate.json and applies command-line overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.noDev {
		cfg.Dev = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readState decodes the state document at path.
func readState(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("Q300").WithDetail(path).Wrap(err)
	}
	defer f.Close()

	state, err := replay.DecodeState(f)
	if err != nil {
		if qe, ok := err.(*errors.QError); ok {
			if qe.Location != nil {
				qe.WithLocation(path, qe.Location.Line, qe.Location.Column)
			} else {
				qe.Location = &errors.Location{File: path}
			}
		}
		return nil, err
	}
	return state, nil
}

// readScript decodes the script at path.
func readScript(path string) ([]replay.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("Q300").WithDetail(path).Wrap(err)
	}
	defer f.Close()
	return replay.ParseScript(f)
}

// newSession builds a replay session from the configuration.
func newSession(cfg *config.Config, state any, logger *slog.Logger, opts ...replay.Option) (*replay.Session, error) {
	base := []replay.Option{
		replay.WithDevMode(cfg.Dev),
		replay.WithLogger(logger),
		replay.WithMaxOps(cfg.Limits.MaxScriptOps),
	}
	return replay.NewSession(state, append(base, opts...)...)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
