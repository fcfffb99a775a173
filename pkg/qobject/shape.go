package qobject

import (
	"reflect"
	"sort"
	"strconv"
	"unsafe"

	qerrors "github.com/vango-dev/qstate/internal/errors"
)

// shape is the per-kind half of a Handle. Each kind of target gets one
// implementation, picked when the Handle is built.
type shape interface {
	kind() Kind

	// get returns the raw value stored at key.
	get(key string) (any, bool)

	// set stores v at key and reports whether dependents must be notified.
	set(key string, v any) (notify bool, err error)

	// store replaces the raw value at key without any bookkeeping.
	store(key string, v any)

	// remove deletes key with the same reporting as set.
	remove(key string) (notify bool, err error)

	has(key string) bool
	keys() []string
	length() int

	// keyed reports whether reads and writes are scoped to a single key.
	// Unkeyed shapes subscribe and notify the whole target.
	keyed() bool
}

func newShape(target any) (shape, unsafe.Pointer, error) {
	kind, id, ok := targetIdentity(target)
	if !ok {
		return nil, nil, errUnsupportedTarget(target)
	}
	switch kind {
	case KindRecord:
		return recordShape{m: target.(map[string]any)}, id, nil
	default:
		return sequenceShape{p: target.(*[]any)}, id, nil
	}
}

type recordShape struct {
	m map[string]any
}

func (recordShape) kind() Kind { return KindRecord }

func (r recordShape) get(key string) (any, bool) {
	v, ok := r.m[key]
	return v, ok
}

func (r recordShape) set(key string, v any) (bool, error) {
	if old, ok := r.m[key]; ok && sameValue(old, v) {
		return false, nil
	}
	r.m[key] = v
	return true, nil
}

func (r recordShape) store(key string, v any) { r.m[key] = v }

func (r recordShape) remove(key string) (bool, error) {
	if _, ok := r.m[key]; !ok {
		return false, nil
	}
	delete(r.m, key)
	return true, nil
}

func (r recordShape) has(key string) bool {
	_, ok := r.m[key]
	return ok
}

func (r recordShape) keys() []string {
	keys := make([]string, 0, len(r.m))
	for k := range r.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r recordShape) length() int { return len(r.m) }

func (recordShape) keyed() bool { return true }

// sequenceShape addresses elements by decimal index. Every read subscribes
// to the whole sequence and every write notifies all of it, since index and
// length changes cannot be tracked per key.
type sequenceShape struct {
	p *[]any
}

func (sequenceShape) kind() Kind { return KindSequence }

func (s sequenceShape) get(key string) (any, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(*s.p) {
		return nil, false
	}
	return (*s.p)[i], true
}

func (s sequenceShape) set(key string, v any) (bool, error) {
	i, err := parseIndex(key)
	if err != nil {
		return false, err
	}
	s.grow(i + 1)
	(*s.p)[i] = v
	return true, nil
}

func (s sequenceShape) store(key string, v any) {
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(*s.p) {
		(*s.p)[i] = v
	}
}

func (sequenceShape) remove(string) (bool, error) {
	return false, errWrongKind("delete", KindSequence)
}

func (s sequenceShape) has(key string) bool {
	_, ok := s.get(key)
	return ok
}

func (s sequenceShape) keys() []string {
	keys := make([]string, len(*s.p))
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func (s sequenceShape) length() int { return len(*s.p) }

func (sequenceShape) keyed() bool { return false }

func (s sequenceShape) appendValues(vs ...any) {
	*s.p = append(*s.p, vs...)
}

// resize truncates or nil-extends the sequence to n elements.
func (s sequenceShape) resize(n int) {
	if n <= len(*s.p) {
		clear((*s.p)[n:])
		*s.p = (*s.p)[:n]
		return
	}
	s.grow(n)
}

func (s sequenceShape) grow(n int) {
	if n > len(*s.p) {
		*s.p = append(*s.p, make([]any, n-len(*s.p))...)
	}
}

func parseIndex(key string) (int, error) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 {
		return 0, qerrors.New("Q006").
			WithDetailf("key %q is not a sequence index", key).
			Wrap(ErrIndexOutOfRange)
	}
	return i, nil
}

// sameValue reports reference identity: scalars compare by value, maps and
// functions by identity. Slices are the same only when both are nil or both
// view the same non-empty run of one backing array; two empty slices cannot
// be told apart and count as changed.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Func:
		ida, _ := identityOf(a)
		idb, _ := identityOf(b)
		return ida == idb
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		if va.Len() == 0 || va.Len() != vb.Len() {
			return false
		}
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Array, reflect.Struct:
		// Composite values may hold uncomparable fields; treat as changed.
		return false
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}
