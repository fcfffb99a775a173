// Package qobject provides fine-grained reactive state for plain data.
//
// Records (map[string]any) and ordered sequences (*[]any) are wrapped in a
// Handle. Reads through a Handle subscribe the currently active Subscriber to
// the key that was read; writes notify exactly the Subscribers that read the
// changed key. Notification is a plain callback: scheduling re-evaluation is
// the consumer's job.
//
// # Core Types
//
// A Container owns the identity registry and the subscription store:
//
//	stack := qobject.NewStack()
//	c := qobject.NewContainer(
//	    qobject.WithInvocation(stack),
//	    qobject.WithNotify(func(sub qobject.Subscriber) { scheduled = append(scheduled, sub) }),
//	)
//
//	state, _ := c.GetOrCreate(map[string]any{"a": 1, "b": 2}, qobject.FlagRecursive)
//
//	stack.Run(qobject.Frame{Subscriber: comp}, func() error {
//	    _, err := state.Get("a") // comp now depends on "a"
//	    return err
//	})
//
//	state.Set("a", 2) // notifies comp
//	state.Set("b", 5) // does not
//
// Sequences subscribe as a whole: any index or length change notifies every
// reader of the sequence.
//
// # Markers
//
// NoSerialize excludes a value from serialization checks and auto-wrapping.
// Immutable freezes a value so handles over it are read-only and untracked.
// Mutable wraps a value that must always be treated as changed when written.
//
// # Lifecycle
//
// Handles are never collected implicitly. Call ClearSubscriptions when a
// Subscriber is disposed and Dispose when a target is no longer needed.
//
// # Thread Safety
//
// A Container is single-threaded. Consumers that share one across goroutines
// must serialize access themselves. Markers are process-wide and safe for
// concurrent use.
package qobject
