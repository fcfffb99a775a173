package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/qstate/internal/dev"
	"github.com/vango-dev/qstate/internal/replay"
	"github.com/vango-dev/qstate/pkg/observe"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve <state.json>",
		Short: "Start the development server",
		Long: `Serve a state document over HTTP.

Routes:
  GET  /state    snapshot of the state tree
  POST /ops      apply a script
  GET  /ws       WebSocket stream of events
  GET  /metrics  Prometheus metrics (if enabled)
  GET  /healthz  liveness

Examples:
  qstate serve state.json
  qstate serve state.json --port=8080
  qstate serve state.json --host=0.0.0.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			state, err := readState(args[0])
			if err != nil {
				return err
			}

			logger := cfg.Logger(cmd.ErrOrStderr())
			var (
				opts     []replay.Option
				gatherer prometheus.Gatherer
			)
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				opts = append(opts, replay.WithObserver(observe.Prometheus(
					observe.WithRegistry(reg),
					observe.WithNamespace(cfg.Metrics.Namespace),
					observe.WithSubsystem(cfg.Metrics.Subsystem),
				)))
				gatherer = reg
			}
			if cfg.Tracing.Enabled {
				opts = append(opts, replay.WithTracer(observe.Tracing(
					observe.WithTracerName(cfg.Tracing.TracerName),
				)))
			}

			session, err := newSession(cfg, state, logger, opts...)
			if err != nil {
				return err
			}

			srv := dev.NewServer(dev.ServerOptions{
				Config:   cfg,
				Session:  session,
				Gatherer: gatherer,
				Logger:   logger,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from qstate.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from qstate.json)")

	return cmd
}
