package qobject

import (
	"encoding/json"
	"sort"
	"strconv"
)

// VerifySerializable checks that v is plain data: nil, booleans, strings,
// numbers, records, sequences, Refs and values marked with NoSerialize.
// Shared references and cycles are visited once. The first offending value
// is reported with ErrNotSerializable and its path.
//
// The Container calls it only in dev mode.
func VerifySerializable(v any) error {
	seen := make(map[visitKey]struct{})
	return verifySerializable(v, "", seen)
}

func verifySerializable(v any, path string, seen map[visitKey]struct{}) error {
	v = Unwrap(v)
	if v == nil || IsOpaque(v) {
		return nil
	}
	if key, ok := visitKeyOf(v); ok {
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}
	}

	switch x := v.(type) {
	case bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := verifySerializable(x[k], path+"."+k, seen); err != nil {
				return err
			}
		}
		return nil
	case []any:
		return verifyElements(x, path, seen)
	case *[]any:
		if x == nil {
			return nil
		}
		return verifyElements(*x, path, seen)
	case *MutableWrapper:
		return verifySerializable(x.V, path, seen)
	case Ref:
		return nil
	}
	return errNotSerializable(v, path)
}

func verifyElements(items []any, path string, seen map[visitKey]struct{}) error {
	for i, item := range items {
		if err := verifySerializable(item, path+"["+strconv.Itoa(i)+"]", seen); err != nil {
			return err
		}
	}
	return nil
}
