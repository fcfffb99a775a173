package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/internal/replay"
)

func replayCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "replay <state.json> <script.json>",
		Short: "Replay a script and print the event log",
		Long: `Replay a script of reads and writes against a state document.

Each read subscribes its subscriber; each write prints the
subscribers it invalidates. Render-phase writes are reported
as warnings when development checks are enabled, and failed
operations are printed with their error code.

Examples:
  qstate replay state.json script.json
  qstate replay state.json script.json --json
  qstate replay state.json script.json --strict`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			state, err := readState(args[0])
			if err != nil {
				return err
			}
			ops, err := readScript(args[1])
			if err != nil {
				return err
			}

			session, err := newSession(cfg, state, cfg.Logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			events, err := session.Apply(cmd.Context(), ops)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if events == nil {
					events = []replay.Event{}
				}
				if err := enc.Encode(events); err != nil {
					return err
				}
			} else {
				for _, e := range events {
					printEvent(out, e)
				}
			}

			if strict {
				for _, e := range events {
					if e.Kind == replay.EventError {
						return errors.New("Q202").
							WithDetailf("op %d failed: %s", e.Op, e.Message)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail if any operation failed")

	return cmd
}

// printEvent writes one line of text output for e.
func printEvent(w io.Writer, e replay.Event) {
	switch d := e.Diagnostic(); {
	case d == nil:
		fmt.Fprintln(w, e.String())
	case e.Kind == replay.EventWarn:
		fmt.Fprintf(w, "#%d %s\n", e.Op, d.FormatWarning())
	default:
		fmt.Fprintf(w, "#%d %s\n", e.Op, d.FormatCompact())
	}
}
