package qobject

import (
	"errors"
	"fmt"

	qerrors "github.com/vango-dev/qstate/internal/errors"
)

// ErrUnsupportedTarget is returned when something other than a record or a
// sequence is wrapped.
var ErrUnsupportedTarget = errors.New("qobject: unsupported target")

// ErrAlreadyWrapped is returned when a Handle, or a target that already has
// one, is passed where a raw target is required.
var ErrAlreadyWrapped = errors.New("qobject: target already wrapped")

// ErrImmutableWrite is returned for every write through an immutable Handle
// or into a frozen target.
var ErrImmutableWrite = errors.New("qobject: write to immutable state")

// ErrNotSerializable is returned in dev mode when a value graph contains
// something that is not plain data.
var ErrNotSerializable = errors.New("qobject: value is not serializable")

// ErrIndexOutOfRange is returned by sequence accessors for negative or
// out-of-range indices.
var ErrIndexOutOfRange = errors.New("qobject: index out of range")

// ErrWrongKind is returned when a record-only or sequence-only operation is
// called on the other kind of Handle.
var ErrWrongKind = errors.New("qobject: operation not supported for target kind")

func errUnsupportedTarget(target any) error {
	return qerrors.New("Q001").
		WithDetailf("cannot wrap %T", target).
		Wrap(ErrUnsupportedTarget)
}

func errAlreadyWrapped(target any) error {
	return qerrors.New("Q002").
		WithDetailf("%T already has a handle", target).
		Wrap(ErrAlreadyWrapped)
}

func errImmutableWrite(key string) error {
	return qerrors.New("Q003").
		WithDetailf("write to key %q rejected", key).
		Wrap(ErrImmutableWrite)
}

func errNotSerializable(value any, path string) error {
	if path == "" {
		path = "<root>"
	}
	return qerrors.New("Q004").
		WithDetailf("%s at %s", describe(value), path).
		Wrap(ErrNotSerializable)
}

func errIndexOutOfRange(index, length int) error {
	return qerrors.New("Q006").
		WithDetailf("index %d with length %d", index, length).
		Wrap(ErrIndexOutOfRange)
}

func errWrongKind(op string, kind Kind) error {
	return qerrors.New("Q007").
		WithDetailf("%s on %s", op, kind).
		Wrap(ErrWrongKind)
}

// describe names a value for error details without dumping large graphs.
func describe(v any) string {
	switch v.(type) {
	case map[string]any, []any, *[]any:
		return fmt.Sprintf("%T", v)
	}
	return fmt.Sprintf("%T value %v", v, v)
}
