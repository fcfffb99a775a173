package qobject

import (
	"sync"
	"unsafe"
)

// markers holds the process-wide identity side tables. Identities are only
// ever added.
var markers = struct {
	mu     sync.RWMutex
	opaque map[unsafe.Pointer]struct{}
	frozen map[unsafe.Pointer]struct{}
}{
	opaque: make(map[unsafe.Pointer]struct{}),
	frozen: make(map[unsafe.Pointer]struct{}),
}

// Ref is implemented by values that point outside the state graph, such as
// host nodes or lazily loaded callbacks. Refs are accepted by the
// serializability check as they are and are never wrapped.
type Ref interface {
	RefID() string
}

// MutableWrapper carries a value that must always be treated as changed.
// Writing one stores the inner value and notifies even when that value is
// identical to the current one. Reads unwrap it transparently.
type MutableWrapper struct {
	V any
}

// Mutable wraps v for a single write.
//
//	state.Set("rows", qobject.Mutable(rows)) // notifies even if rows is the same slice
func Mutable(v any) *MutableWrapper {
	return &MutableWrapper{V: v}
}

// IsMutable reports whether v is a *MutableWrapper.
func IsMutable(v any) bool {
	_, ok := v.(*MutableWrapper)
	return ok
}

// NoSerialize marks v as opaque: it is skipped by VerifySerializable and
// returned as-is from recursive reads, so it may carry runtime-only
// payloads such as live callbacks. Values without an identity are returned
// unchanged and unmarked; that includes bare slices, so mark a *[]any to
// tag a sequence.
func NoSerialize[T any](v T) T {
	mark(markers.opaque, v)
	return v
}

// IsOpaque reports whether v was marked with NoSerialize.
func IsOpaque(v any) bool {
	return marked(markers.opaque, v)
}

// Immutable freezes v. Handles over a frozen target reject writes and never
// record subscriptions. Like NoSerialize it ignores bare slices.
func Immutable[T any](v T) T {
	mark(markers.frozen, v)
	return v
}

// IsFrozen reports whether v was frozen with Immutable.
func IsFrozen(v any) bool {
	return marked(markers.frozen, v)
}

func mark(set map[unsafe.Pointer]struct{}, v any) {
	id, ok := identityOf(Unwrap(v))
	if !ok {
		return
	}
	markers.mu.Lock()
	set[id] = struct{}{}
	markers.mu.Unlock()
}

func marked(set map[unsafe.Pointer]struct{}, v any) bool {
	id, ok := identityOf(Unwrap(v))
	if !ok {
		return false
	}
	markers.mu.RLock()
	_, found := set[id]
	markers.mu.RUnlock()
	return found
}
