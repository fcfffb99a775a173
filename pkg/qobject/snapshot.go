package qobject

// Snapshot returns a deep copy of v with Handles unwrapped, sequences
// flattened to []any and mutable wrappers replaced by their value, ready
// for encoding/json. A reference back to an enclosing value is cut to nil.
// Reading through Snapshot is never tracked.
func Snapshot(v any) any {
	return snapshot(v, make(map[visitKey]bool))
}

func snapshot(v any, onPath map[visitKey]bool) any {
	v = Unwrap(v)
	if mw, ok := v.(*MutableWrapper); ok {
		v = Unwrap(mw.V)
	}

	var items []any
	switch x := v.(type) {
	case map[string]any:
		id, _ := visitKeyOf(x)
		if x == nil || onPath[id] {
			return nil
		}
		onPath[id] = true
		defer delete(onPath, id)

		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = snapshot(item, onPath)
		}
		return out
	case []any:
		items = x
	case *[]any:
		if x == nil {
			return nil
		}
		items = *x
	default:
		return v
	}

	if id, ok := visitKeyOf(items); ok {
		if onPath[id] {
			return nil
		}
		onPath[id] = true
		defer delete(onPath, id)
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = snapshot(item, onPath)
	}
	return out
}
