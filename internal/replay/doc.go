// Package replay executes scripted reads and writes against a reactive
// state tree and records what the tracking layer did in response.
//
// A script is a JSON array of operations:
//
//	[
//	  {"op": "read",  "subscriber": "header", "phase": "render", "path": "user.name"},
//	  {"op": "keys",  "subscriber": "table",  "path": "rows"},
//	  {"op": "write", "phase": "event", "path": "user.name", "value": "ada"},
//	  {"op": "append", "path": "rows", "value": {"id": 3}},
//	  {"op": "clear", "subscriber": "header"}
//	]
//
// Paths are dotted; numeric segments index sequences. Every operation runs
// inside a qobject.Frame for its subscriber and phase, so reads subscribe and
// writes notify exactly as they would inside a running application.
//
// The result is an ordered event log: "read" and "keys" events carry the
// value observed, "notify" events name each subscriber invalidated by a
// write, "warn" events report render-phase writes (Q005), and "error" events
// report operations the tracking layer rejected.
package replay
