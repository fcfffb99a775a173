package qobject

import (
	"sort"
	"unsafe"
)

// NotifyFunc is called once per Subscriber that depends on a changed key.
type NotifyFunc func(sub Subscriber)

// KeySet is the set of keys a Subscriber read from one target.
type KeySet map[string]struct{}

// Has reports whether key is in the set.
func (k KeySet) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// Sorted returns the keys in lexical order.
func (k KeySet) Sorted() []string {
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SubscriberMap seeds a local subscription table. A nil KeySet subscribes
// the Subscriber to the whole target.
type SubscriberMap map[Subscriber]KeySet

// LocalSubscriptions is the subscription table of one target.
type LocalSubscriptions struct {
	manager *SubscriptionManager

	// subs maps each Subscriber to the keys it read. A nil set means the
	// whole target.
	subs map[Subscriber]KeySet

	// order keeps Subscribers in first-subscription order so notification
	// order is deterministic.
	order []Subscriber
}

// AddSub subscribes sub to every mutation of the target. It supersedes any
// per-key subscription sub already had.
func (l *LocalSubscriptions) AddSub(sub Subscriber) {
	if _, ok := l.subs[sub]; !ok {
		l.order = append(l.order, sub)
	}
	l.subs[sub] = nil
	l.manager.track(sub, l)
}

// AddSubKey subscribes sub to key. A Subscriber already subscribed to the
// whole target stays that way.
func (l *LocalSubscriptions) AddSubKey(sub Subscriber, key string) {
	keys, ok := l.subs[sub]
	if !ok {
		keys = make(KeySet)
		l.subs[sub] = keys
		l.order = append(l.order, sub)
	}
	if keys != nil {
		keys[key] = struct{}{}
	}
	l.manager.track(sub, l)
}

// Notify notifies every Subscriber of the target and returns how many were
// notified.
func (l *LocalSubscriptions) Notify() int {
	return l.notify("", true)
}

// NotifyKey notifies the Subscribers that read key or the whole target and
// returns how many were notified.
func (l *LocalSubscriptions) NotifyKey(key string) int {
	return l.notify(key, false)
}

func (l *LocalSubscriptions) notify(key string, whole bool) int {
	// Copy before notifying; callbacks may clear subscriptions.
	subs := make([]Subscriber, len(l.order))
	copy(subs, l.order)

	n := 0
	for _, sub := range subs {
		keys, ok := l.subs[sub]
		if !ok {
			continue
		}
		if keys == nil || whole || keys.Has(key) {
			l.manager.notify(sub)
			n++
		}
	}
	return n
}

// Lookup returns the keys sub is subscribed to. A nil set with ok == true
// means a whole-target subscription.
func (l *LocalSubscriptions) Lookup(sub Subscriber) (keys KeySet, ok bool) {
	keys, ok = l.subs[sub]
	return keys, ok
}

// Subscribers returns the subscribed Subscribers in subscription order.
func (l *LocalSubscriptions) Subscribers() []Subscriber {
	out := make([]Subscriber, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of subscribed Subscribers.
func (l *LocalSubscriptions) Len() int {
	return len(l.subs)
}

func (l *LocalSubscriptions) remove(sub Subscriber) {
	if _, ok := l.subs[sub]; !ok {
		return
	}
	delete(l.subs, sub)
	for i, s := range l.order {
		if s == sub {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// SubscriptionManager owns every local table of a Container, plus the
// reverse index from Subscriber to the tables it appears in.
type SubscriptionManager struct {
	objToSubs  map[unsafe.Pointer]*LocalSubscriptions
	subsToObjs map[Subscriber]map[*LocalSubscriptions]struct{}
	onChange   NotifyFunc
}

// NewSubscriptionManager creates a manager that calls onChange for every
// notification. A nil onChange discards notifications.
func NewSubscriptionManager(onChange NotifyFunc) *SubscriptionManager {
	return &SubscriptionManager{
		objToSubs:  make(map[unsafe.Pointer]*LocalSubscriptions),
		subsToObjs: make(map[Subscriber]map[*LocalSubscriptions]struct{}),
		onChange:   onChange,
	}
}

// GetLocal returns the table for target, creating it if needed. Subscribers
// in initial are added to the table and to the reverse index.
func (m *SubscriptionManager) GetLocal(target any, initial SubscriberMap) (*LocalSubscriptions, error) {
	_, id, ok := targetIdentity(target)
	if !ok {
		return nil, errUnsupportedTarget(target)
	}
	local, ok := m.objToSubs[id]
	if !ok {
		local = &LocalSubscriptions{
			manager: m,
			subs:    make(map[Subscriber]KeySet),
		}
		m.objToSubs[id] = local
	}
	for sub, keys := range initial {
		if keys == nil {
			local.AddSub(sub)
			continue
		}
		for key := range keys {
			local.AddSubKey(sub, key)
		}
	}
	return local, nil
}

// TryGetLocal returns the table for target without creating one. target
// must be raw; Handles always report false.
func (m *SubscriptionManager) TryGetLocal(target any) (*LocalSubscriptions, bool) {
	_, id, ok := targetIdentity(target)
	if !ok {
		return nil, false
	}
	local, ok := m.objToSubs[id]
	return local, ok
}

// ClearSub removes sub from every table it appears in. It is idempotent.
func (m *SubscriptionManager) ClearSub(sub Subscriber) int {
	tables, ok := m.subsToObjs[sub]
	if !ok {
		return 0
	}
	for local := range tables {
		local.remove(sub)
	}
	delete(m.subsToObjs, sub)
	return len(tables)
}

// Participation returns the number of tables sub appears in.
func (m *SubscriptionManager) Participation(sub Subscriber) int {
	return len(m.subsToObjs[sub])
}

// Tables returns the number of local tables.
func (m *SubscriptionManager) Tables() int {
	return len(m.objToSubs)
}

func (m *SubscriptionManager) track(sub Subscriber, local *LocalSubscriptions) {
	tables, ok := m.subsToObjs[sub]
	if !ok {
		tables = make(map[*LocalSubscriptions]struct{})
		m.subsToObjs[sub] = tables
	}
	tables[local] = struct{}{}
}

func (m *SubscriptionManager) notify(sub Subscriber) {
	if m.onChange != nil {
		m.onChange(sub)
	}
}

// drop forgets the table of target and its reverse-index entries.
func (m *SubscriptionManager) drop(id unsafe.Pointer) {
	local, ok := m.objToSubs[id]
	if !ok {
		return
	}
	for _, sub := range local.order {
		if tables, ok := m.subsToObjs[sub]; ok {
			delete(tables, local)
			if len(tables) == 0 {
				delete(m.subsToObjs, sub)
			}
		}
	}
	delete(m.objToSubs, id)
}
