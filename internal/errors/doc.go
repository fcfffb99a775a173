// Package errors provides structured, actionable error messages for qstate.
//
// Every error the reactive core returns is a *QError carrying a stable code,
// a category and a plain-language explanation. The core's sentinel errors
// (qobject.ErrImmutableWrite and friends) are attached with Wrap, so callers
// keep using errors.Is while the CLI can print the full report.
//
// # Categories
//
//   - runtime: contract violations raised by the reactive core
//   - config: qstate.json problems
//   - script: replay script problems
//   - cli: command line usage problems
//
// # Usage
//
//	err := errors.New("Q003").
//	    WithDetail(`write to key "title" rejected`).
//	    Wrap(qobject.ErrImmutableWrite)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR Q003: Write to immutable state
//	//
//	//   write to key "title" rejected
//	//
//	//   Learn more: https://vango.dev/docs/qstate/errors/Q003
package errors
