package qobject

import (
	"strconv"
	"strings"
)

// Flags are the attributes of a Handle, fixed at construction.
type Flags uint8

const (
	// FlagRecursive wraps nested records and sequences on read.
	FlagRecursive Flags = 1 << iota

	// FlagImmutable rejects writes and skips subscription bookkeeping.
	FlagImmutable
)

// String returns the set flags joined by "|".
func (f Flags) String() string {
	var parts []string
	if f&FlagRecursive != 0 {
		parts = append(parts, "recursive")
	}
	if f&FlagImmutable != 0 {
		parts = append(parts, "immutable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Handle is the tracked view of one target. Reads subscribe the active
// Subscriber; writes notify dependents. There is exactly one Handle per
// target in a Container.
type Handle struct {
	c      *Container
	target any
	shape  shape
	local  *LocalSubscriptions
	flags  Flags
}

// Target returns the raw target. Reading it is never tracked.
func (h *Handle) Target() any { return h.target }

// Flags returns the construction flags.
func (h *Handle) Flags() Flags { return h.flags }

// Kind returns the target kind.
func (h *Handle) Kind() Kind { return h.shape.kind() }

// Local returns the subscription table of the target.
func (h *Handle) Local() *LocalSubscriptions { return h.local }

func (h *Handle) recursive() bool { return h.flags&FlagRecursive != 0 }

func (h *Handle) immutable() bool {
	return h.flags&FlagImmutable != 0 || IsFrozen(h.target)
}

// Get reads key. For sequences key is a decimal index. Missing keys read as
// nil and still subscribe, so a later write of the key notifies.
func (h *Handle) Get(key string) (any, error) {
	v, _ := h.shape.get(key)
	return h.read(key, v)
}

// At reads element i of a sequence.
func (h *Handle) At(i int) (any, error) {
	if h.Kind() != KindSequence {
		return nil, h.c.reject(errWrongKind("At", h.Kind()))
	}
	if i < 0 || i >= h.shape.length() {
		return nil, h.c.reject(errIndexOutOfRange(i, h.shape.length()))
	}
	return h.Get(strconv.Itoa(i))
}

func (h *Handle) read(key string, v any) (any, error) {
	sub := h.c.activeSubscriber()
	if mw, ok := v.(*MutableWrapper); ok {
		v = mw.V
	}
	if h.immutable() {
		sub = nil
	}
	if sub != nil {
		h.subscribe(sub, key, !h.shape.keyed())
	}
	if !h.recursive() {
		return v, nil
	}
	return h.c.wrap(v, func(p *[]any) { h.shape.store(key, p) })
}

// subscribe records sub on key, or on the whole target when whole is set.
// The empty string is a valid record key and never means whole.
func (h *Handle) subscribe(sub Subscriber, key string, whole bool) {
	if whole {
		key = ""
		h.local.AddSub(sub)
	} else {
		h.local.AddSubKey(sub, key)
	}
	if len(h.c.observers) > 0 {
		ctx := h.c.ctx()
		for _, o := range h.c.observers {
			o.Subscribed(ctx, h.Kind(), key, whole)
		}
	}
}

// subscribeAll records a whole-target subscription for enumeration.
func (h *Handle) subscribeAll() {
	if h.immutable() {
		return
	}
	if sub := h.c.activeSubscriber(); sub != nil {
		h.subscribe(sub, "", true)
	}
}

// Has reports whether key exists. It is not tracked.
func (h *Handle) Has(key string) bool {
	return h.shape.has(key)
}

// Keys lists the keys of the target: sorted names for records, indices for
// sequences. The result depends on every key, so the active Subscriber is
// subscribed to the whole target.
func (h *Handle) Keys() []string {
	h.subscribeAll()
	return h.shape.keys()
}

// Len returns the number of keys or elements, subscribing to the whole
// target.
func (h *Handle) Len() int {
	h.subscribeAll()
	return h.shape.length()
}

// Set writes v to key. Records notify readers of key when the value changed
// by identity; sequences notify every reader on every write. Writing a
// *MutableWrapper stores its value and always notifies.
func (h *Handle) Set(key string, v any) error {
	if err := h.checkWritable(key); err != nil {
		return err
	}
	v, force, err := h.prepareValue(v)
	if err != nil {
		return err
	}
	h.checkPhase(key)
	notify, err := h.shape.set(key, v)
	if err != nil {
		return h.c.reject(err)
	}
	if notify || force {
		h.dispatch(key, !h.shape.keyed())
	}
	return nil
}

// SetAt writes element i of a sequence, nil-extending it when i is past the
// end.
func (h *Handle) SetAt(i int, v any) error {
	if h.Kind() != KindSequence {
		return h.c.reject(errWrongKind("SetAt", h.Kind()))
	}
	if i < 0 {
		return h.c.reject(errIndexOutOfRange(i, h.shape.length()))
	}
	return h.Set(strconv.Itoa(i), v)
}

// Append adds vs to the end of a sequence with a single notification.
func (h *Handle) Append(vs ...any) error {
	seq, ok := h.shape.(sequenceShape)
	if !ok {
		return h.c.reject(errWrongKind("Append", h.Kind()))
	}
	if err := h.checkWritable("length"); err != nil {
		return err
	}
	prepared := make([]any, len(vs))
	for i, v := range vs {
		p, _, err := h.prepareValue(v)
		if err != nil {
			return err
		}
		prepared[i] = p
	}
	h.checkPhase("length")
	seq.appendValues(prepared...)
	h.dispatch("", true)
	return nil
}

// SetLen truncates or nil-extends a sequence to n elements.
func (h *Handle) SetLen(n int) error {
	seq, ok := h.shape.(sequenceShape)
	if !ok {
		return h.c.reject(errWrongKind("SetLen", h.Kind()))
	}
	if err := h.checkWritable("length"); err != nil {
		return err
	}
	if n < 0 {
		return h.c.reject(errIndexOutOfRange(n, seq.length()))
	}
	h.checkPhase("length")
	seq.resize(n)
	h.dispatch("", true)
	return nil
}

// Delete removes key from a record, notifying readers of key if it was
// present.
func (h *Handle) Delete(key string) error {
	if err := h.checkWritable(key); err != nil {
		return err
	}
	h.checkPhase(key)
	notify, err := h.shape.remove(key)
	if err != nil {
		return h.c.reject(err)
	}
	if notify {
		h.dispatch(key, false)
	}
	return nil
}

func (h *Handle) checkWritable(key string) error {
	if h.immutable() {
		return h.c.reject(errImmutableWrite(key))
	}
	return nil
}

func (h *Handle) checkPhase(key string) {
	if h.c.dev && h.c.activePhase() == PhaseRender {
		h.c.warnPhaseWrite(key)
	}
}

// prepareValue returns the raw value to store for v and whether the write
// must notify regardless of identity.
func (h *Handle) prepareValue(v any) (any, bool, error) {
	force := false
	if mw, ok := v.(*MutableWrapper); ok {
		v = mw.V
		force = true
	}
	if h.recursive() {
		v = Unwrap(v)
	}
	if h.c.dev {
		if err := VerifySerializable(v); err != nil {
			return nil, false, h.c.reject(err)
		}
	}
	return v, force, nil
}

func (h *Handle) dispatch(key string, whole bool) {
	var n int
	if whole {
		key = ""
		n = h.local.Notify()
	} else {
		n = h.local.NotifyKey(key)
	}
	if len(h.c.observers) > 0 {
		ctx := h.c.ctx()
		for _, o := range h.c.observers {
			o.Notified(ctx, key, whole, n)
		}
	}
}
