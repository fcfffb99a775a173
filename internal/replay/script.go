package replay

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/qobject"
)

// Operation names.
const (
	OpRead    = "read"
	OpKeys    = "keys"
	OpWrite   = "write"
	OpDelete  = "delete"
	OpAppend  = "append"
	OpClear   = "clear"
	OpDispose = "dispose"
)

// Op is one scripted operation.
type Op struct {
	// Op is the operation name.
	Op string `json:"op"`

	// Subscriber names the unit of work the operation runs as. Empty means
	// untracked.
	Subscriber string `json:"subscriber,omitempty"`

	// Phase is "render", "event", "effect" or empty.
	Phase string `json:"phase,omitempty"`

	// Path is the dotted path the operation applies to. Empty is the root.
	Path string `json:"path,omitempty"`

	// Value is the value written or appended.
	Value any `json:"value,omitempty"`

	// Mutable marks the written value as always-changed.
	Mutable bool `json:"mutable,omitempty"`
}

// ParseScript decodes a JSON script. Numbers are kept as json.Number.
func ParseScript(r io.Reader) ([]Op, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var ops []Op
	if err := dec.Decode(&ops); err != nil {
		return nil, errors.New("Q202").
			WithDetail("Failed to parse script: " + err.Error()).
			WithSuggestion("A script is a JSON array of {\"op\": ...} objects")
	}
	for i, op := range ops {
		if err := op.validate(); err != nil {
			return nil, err.WithDetailf("op %d: %s", i, err.Detail)
		}
	}
	return ops, nil
}

// DecodeState decodes a JSON state document. Objects become records and
// arrays become sequences. Syntax errors carry the line and column of the
// offending byte in their Location; the caller fills in the file.
func DecodeState(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New("Q300").Wrap(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		qe := errors.New("Q200").WithDetail(err.Error()).Wrap(err)
		if offset, ok := syntaxOffset(err); ok {
			line, column := errors.Position(data, offset)
			qe.Location = &errors.Location{Line: line, Column: column}
		}
		return nil, qe
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case []any:
		return &t, nil
	}
	return nil, errors.New("Q200").WithDetailf("top-level value is %T", v)
}

// syntaxOffset returns the input offset a decode error points at.
func syntaxOffset(err error) (int64, bool) {
	switch e := err.(type) {
	case *json.SyntaxError:
		return e.Offset, true
	case *json.UnmarshalTypeError:
		return e.Offset, true
	}
	return 0, false
}

func (op Op) validate() *errors.QError {
	switch op.Op {
	case OpRead, OpDelete:
		if op.Path == "" {
			return errors.New("Q202").WithDetailf("%q requires a path", op.Op)
		}
	case OpWrite:
		if op.Path == "" {
			return errors.New("Q202").WithDetail(`"write" requires a path`)
		}
	case OpClear:
		if op.Subscriber == "" {
			return errors.New("Q202").WithDetail(`"clear" requires a subscriber`)
		}
	case OpKeys, OpAppend, OpDispose:
	default:
		return errors.New("Q202").WithDetailf("unknown op %q", op.Op)
	}
	if _, ok := parsePhase(op.Phase); !ok {
		return errors.New("Q202").WithDetailf("unknown phase %q", op.Phase)
	}
	return nil
}

func parsePhase(s string) (qobject.Phase, bool) {
	switch qobject.Phase(s) {
	case qobject.PhaseNone, qobject.PhaseRender, qobject.PhaseEvent, qobject.PhaseEffect:
		return qobject.Phase(s), true
	}
	return qobject.PhaseNone, false
}

// splitPath splits a dotted path into its parent segments and final key.
func splitPath(path string) ([]string, string) {
	if path == "" {
		return nil, ""
	}
	segs := strings.Split(path, ".")
	return segs[:len(segs)-1], segs[len(segs)-1]
}

func joinPath(segs []string) string {
	return strings.Join(segs, ".")
}
