package replay

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vango-dev/qstate/internal/errors"
)

func TestParseScript(t *testing.T) {
	ops, err := ParseScript(strings.NewReader(`[
  {"op": "read", "subscriber": "view", "phase": "render", "path": "a.b"},
  {"op": "write", "phase": "event", "path": "a.b", "value": 42, "mutable": true}
]`))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Subscriber != "view" || ops[0].Phase != "render" || ops[0].Path != "a.b" {
		t.Errorf("ops[0] = %+v", ops[0])
	}
	if n, ok := ops[1].Value.(json.Number); !ok || n.String() != "42" {
		t.Errorf("ops[1].Value = %#v, want json.Number 42", ops[1].Value)
	}
	if !ops[1].Mutable {
		t.Error("ops[1].Mutable = false")
	}
}

func TestParseScript_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		script string
		detail string
	}{
		{"not json", `{`, "Failed to parse script"},
		{"not an array", `{"op": "read"}`, "Failed to parse script"},
		{"unknown op", `[{"op": "keys"}, {"op": "poke"}]`, `op 1: unknown op "poke"`},
		{"unknown phase", `[{"op": "keys", "phase": "paint"}]`, `unknown phase "paint"`},
		{"read without path", `[{"op": "read"}]`, `"read" requires a path`},
		{"write without path", `[{"op": "write", "value": 1}]`, `"write" requires a path`},
		{"clear without subscriber", `[{"op": "clear"}]`, `"clear" requires a subscriber`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript(strings.NewReader(tt.script))
			if err == nil {
				t.Fatal("expected error")
			}
			if code := errors.CodeOf(err); code != "Q202" {
				t.Errorf("code = %q, want Q202", code)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.detail)
			}
		})
	}
}

func TestDecodeState(t *testing.T) {
	v, err := DecodeState(strings.NewReader(`{"count": 1, "tags": ["a"]}`))
	if err != nil {
		t.Fatalf("DecodeState(object): %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("DecodeState(object) = %T, want map[string]any", v)
	}
	if m["count"] != json.Number("1") {
		t.Errorf("count = %#v, want json.Number", m["count"])
	}

	v, err = DecodeState(strings.NewReader(`[1, 2]`))
	if err != nil {
		t.Fatalf("DecodeState(array): %v", err)
	}
	p, ok := v.(*[]any)
	if !ok || len(*p) != 2 {
		t.Fatalf("DecodeState(array) = %#v, want *[]any of 2", v)
	}

	for _, doc := range []string{`"text"`, `42`, `null`, `{`} {
		if _, err := DecodeState(strings.NewReader(doc)); errors.CodeOf(err) != "Q200" {
			t.Errorf("DecodeState(%s) error = %v, want Q200", doc, err)
		}
	}
}

func TestDecodeState_SyntaxLocation(t *testing.T) {
	_, err := DecodeState(strings.NewReader("{\n  \"a\": ,\n}\n"))
	qe, ok := err.(*errors.QError)
	if !ok || qe.Code != "Q200" {
		t.Fatalf("error = %v, want Q200", err)
	}
	if qe.Location == nil || qe.Location.Line != 2 || qe.Location.Column < 1 {
		t.Errorf("Location = %+v, want line 2", qe.Location)
	}
}

func TestEventDiagnostic(t *testing.T) {
	if d := (Event{Kind: EventNotify}).Diagnostic(); d != nil {
		t.Errorf("notify Diagnostic() = %v, want nil", d)
	}
	d := Event{Kind: EventError, Code: "Q203", Message: "boom"}.Diagnostic()
	if d == nil || d.FormatCompact() != "Q203: boom" {
		t.Errorf("Diagnostic() = %v", d)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path    string
		parents string
		key     string
	}{
		{"", "", ""},
		{"a", "", "a"},
		{"a.b", "a", "b"},
		{"rows.0.id", "rows.0", "id"},
	}
	for _, tt := range tests {
		segs, key := splitPath(tt.path)
		if joinPath(segs) != tt.parents || key != tt.key {
			t.Errorf("splitPath(%q) = %q, %q; want %q, %q", tt.path, joinPath(segs), key, tt.parents, tt.key)
		}
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Op: 0, Kind: EventRead, Subscriber: "view", Path: "a", Value: "x"}, "#0 read   view a = x"},
		{Event{Op: 2, Kind: EventNotify, Subscriber: "view", Path: "a"}, "#2 notify view (a)"},
		{Event{Op: 3, Kind: EventError, Code: "Q203", Message: "boom"}, "#3 error  Q203: boom"},
	}
	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
