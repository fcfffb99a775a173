// Package dev provides the qstate development server.
//
// The server holds one replay session and exposes it over HTTP:
//
//	GET  /healthz  liveness
//	GET  /state    JSON snapshot of the state tree
//	POST /ops      apply a script, respond with its events
//	GET  /ws       WebSocket stream of events from every applied script
//	GET  /metrics  Prometheus metrics, when a gatherer is configured
//
// Requests are serialized: scripts never interleave, and stream clients
// receive event batches in the order the scripts were applied.
//
// # Usage
//
//	srv := dev.NewServer(dev.ServerOptions{
//	    Config:   cfg,
//	    Session:  session,
//	    Gatherer: registry,
//	})
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package dev
