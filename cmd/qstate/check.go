package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/qstate/pkg/qobject"
)

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <state.json>",
		Short: "Verify a state document",
		Long: `Verify that a state document can be tracked.

The document is checked for serializability and then wrapped
recursively; every nested object gets its own handle.

Examples:
  qstate check state.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			state, err := readState(args[0])
			if err != nil {
				return err
			}
			if err := qobject.VerifySerializable(state); err != nil {
				return err
			}

			session, err := newSession(cfg, state, cfg.Logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			keys, err := countKeys(session.Root())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "%s is trackable", args[0])
			info(out, "handles: %d", session.Container().Len())
			info(out, "keys:    %d", keys)
			return nil
		},
	}
}

// countKeys walks h, wrapping every nested object, and returns the number
// of keys seen. A handle reached twice is counted once.
func countKeys(h *qobject.Handle) (int, error) {
	return walkKeys(h, make(map[*qobject.Handle]struct{}))
}

func walkKeys(h *qobject.Handle, seen map[*qobject.Handle]struct{}) (int, error) {
	if _, ok := seen[h]; ok {
		return 0, nil
	}
	seen[h] = struct{}{}

	keys := h.Keys()
	n := len(keys)
	for _, k := range keys {
		v, err := h.Get(k)
		if err != nil {
			return 0, err
		}
		child, ok := v.(*qobject.Handle)
		if !ok {
			continue
		}
		m, err := walkKeys(child, seen)
		if err != nil {
			return 0, err
		}
		n += m
	}
	return n, nil
}
