package qobject

import (
	"reflect"
	"unsafe"
)

// Kind is the shape of a target.
type Kind uint8

const (
	KindRecord Kind = iota + 1
	KindSequence
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// identityOf returns the identity of a reference value. Values without a
// stable identity (scalars, structs, nil references) report false. Bare
// slices have none either: a slice header only points into a backing array
// that sub-slices and every zero-capacity slice share.
func identityOf(v any) (unsafe.Pointer, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return nil, false
		}
		return rv.UnsafePointer(), true
	}
	return nil, false
}

// visitKey identifies a value during a graph walk. Slices are keyed by
// their first element and length so a sub-slice is distinct from its
// parent.
type visitKey struct {
	p unsafe.Pointer
	n int
}

// visitKeyOf returns the walk key of v. Empty slices report false; they
// have nothing to revisit.
func visitKeyOf(v any) (visitKey, bool) {
	if v == nil {
		return visitKey{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return visitKey{}, false
		}
		return visitKey{p: rv.UnsafePointer(), n: rv.Len()}, true
	}
	id, ok := identityOf(v)
	return visitKey{p: id, n: -1}, ok
}

// targetIdentity returns the kind and identity of a wrappable target.
func targetIdentity(target any) (Kind, unsafe.Pointer, bool) {
	switch t := target.(type) {
	case map[string]any:
		if t == nil {
			return 0, nil, false
		}
		id, _ := identityOf(t)
		return KindRecord, id, true
	case *[]any:
		if t == nil {
			return 0, nil, false
		}
		return KindSequence, unsafe.Pointer(t), true
	}
	return 0, nil, false
}

// objectLike reports whether v is a composite value that the wrap decision
// has to look at. Scalars, functions and channels pass through reads
// untouched.
func objectLike(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Struct:
		return true
	}
	return false
}
