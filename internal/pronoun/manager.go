package pronoun

import (
	"sync"

	"go.uber.org/zap"
)

// Persister is told whenever in-memory pronoun state changed and should be
// flushed. Implementations decide when (and whether) to write.
type Persister interface {
	SchedulePersist()
}

type nopPersister struct{}

func (nopPersister) SchedulePersist() {}

// snapshotter is implemented by stores that can hand out a copy of their
// contents for persistence.
type snapshotter interface {
	Snapshot() map[string]Record
}

type forgetter interface {
	Forget(personaID string)
}

type loader interface {
	Load(records map[string]Record)
}

// Manager provides synchronized, normalized access to persona pronouns kept
// in a Store, and tracks which persona is currently active.
type Manager struct {
	store   Store
	persist Persister
	log     *zap.Logger

	mu     sync.RWMutex
	active string
}

// NewManager creates a Manager. A nil persister or logger is replaced by a
// no-op.
func NewManager(store Store, persist Persister, log *zap.Logger) *Manager {
	if persist == nil {
		persist = nopPersister{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, persist: persist, log: log}
}

// SetPersister swaps the persistence collaborator. Used at startup, when the
// flusher needs the manager to exist before it can be built.
func (m *Manager) SetPersister(p Persister) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = nopPersister{}
	}
	m.persist = p
}

// Get returns a copy of the persona's pronouns. An empty persona ID or a
// persona with no entry yields the all-empty record; the store is not touched.
func (m *Manager) Get(personaID string) Record {
	if personaID == "" {
		return Record{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.store.Lookup(personaID)
	if !ok || d == nil || d.Pronoun == nil {
		return Record{}
	}
	return *d.Pronoun
}

// EnsureWritable materializes the persona's entry and returns its live record.
// It returns nil for an empty persona ID. The pointer is shared with the
// store; when the Manager is used from several goroutines, mutate through
// Update instead.
func (m *Manager) EnsureWritable(personaID string) *Record {
	if personaID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(personaID)
}

func (m *Manager) ensureLocked(personaID string) *Record {
	d := m.store.Ensure(personaID)
	if d.Pronoun == nil {
		d.Pronoun = &Record{}
	}
	return d.Pronoun
}

// Update applies fn to the persona's writable record and signals the
// persister. It reports false, without calling fn, when personaID is empty.
func (m *Manager) Update(personaID string, fn func(r *Record)) bool {
	if personaID == "" {
		return false
	}
	m.mu.Lock()
	fn(m.ensureLocked(personaID))
	p := m.persist
	m.mu.Unlock()

	p.SchedulePersist()
	return true
}

// SetField stores value in the slot named key (record or macro spelling).
// The value is stored as given; callers trim if they need to. It reports
// false when there is no persona to write to.
func (m *Manager) SetField(personaID, key, value string) (bool, error) {
	slot, err := ParseSlot(key)
	if err != nil {
		return false, err
	}
	ok := m.Update(personaID, func(r *Record) { r.Set(slot, value) })
	if ok {
		m.log.Debug("pronoun field set",
			zap.String("persona", personaID),
			zap.String("slot", slot.Key()),
		)
	}
	return ok, nil
}

// ApplyPreset overwrites all five fields from the named preset. Unknown
// presets and empty persona IDs are ignored and report false.
func (m *Manager) ApplyPreset(personaID, key string) bool {
	preset, ok := Preset(key)
	if !ok {
		return false
	}
	applied := m.Update(personaID, func(r *Record) { *r = preset })
	if applied {
		m.log.Debug("pronoun preset applied",
			zap.String("persona", personaID),
			zap.String("preset", key),
		)
	}
	return applied
}

// Active returns the active persona ID, or "" when none is selected.
func (m *Manager) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// SetActive selects the active persona.
func (m *Manager) SetActive(personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = personaID
}

// Current returns the active persona's pronouns.
func (m *Manager) Current() Record {
	return m.Get(m.Active())
}

// Snapshot copies every stored record, or returns nil when the store cannot
// enumerate its contents.
func (m *Manager) Snapshot() map[string]Record {
	s, ok := m.store.(snapshotter)
	if !ok {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return s.Snapshot()
}

// Load replaces the store contents, when the store supports it. Load does not
// signal the persister.
func (m *Manager) Load(records map[string]Record) {
	l, ok := m.store.(loader)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Load(records)
}

// Forget drops the persona's entry, when the store supports it.
func (m *Manager) Forget(personaID string) {
	f, ok := m.store.(forgetter)
	if !ok || personaID == "" {
		return
	}
	m.mu.Lock()
	f.Forget(personaID)
	p := m.persist
	m.mu.Unlock()
	p.SchedulePersist()
}
