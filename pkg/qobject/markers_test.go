package qobject

import (
	"sync"
	"testing"
)

func TestMarkers(t *testing.T) {
	m := map[string]any{}
	if IsOpaque(m) || IsFrozen(m) {
		t.Fatal("fresh value reported as marked")
	}

	if got := NoSerialize(m); !IsOpaque(got) {
		t.Error("NoSerialize did not mark the value")
	}
	if IsFrozen(m) {
		t.Error("NoSerialize should not freeze")
	}

	seq := Immutable(&[]any{1})
	if !IsFrozen(seq) {
		t.Error("Immutable did not freeze the value")
	}

	if NoSerialize(5) != 5 || IsOpaque(5) {
		t.Error("scalars cannot be marked")
	}

	mw := Mutable(3)
	if !IsMutable(mw) || mw.V != 3 {
		t.Errorf("Mutable(3) = %#v", mw)
	}
	if IsMutable(3) {
		t.Error("IsMutable(3) = true")
	}
}

func TestMarkers_ThroughHandle(t *testing.T) {
	f := newFixture(t)
	target := map[string]any{}
	h := mustHandle(t, f.c, target, 0)

	Immutable(h)
	if !IsFrozen(target) {
		t.Error("freezing a handle should freeze its target")
	}
}

func TestMarkers_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := NoSerialize(map[string]any{})
				if !IsOpaque(v) {
					t.Error("lost opaque mark")
				}
			}
		}()
	}
	wg.Wait()
}
