package pronoun

import "sort"

// Store holds persona descriptors keyed by persona ID. Lookup must never
// create entries; only Ensure may.
type Store interface {
	Lookup(personaID string) (*Descriptor, bool)
	Ensure(personaID string) *Descriptor
}

// MemoryStore is a map-backed Store. It is not safe for concurrent use;
// Manager serializes access to it.
type MemoryStore struct {
	descriptors map[string]*Descriptor
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{descriptors: make(map[string]*Descriptor)}
}

func (m *MemoryStore) Lookup(personaID string) (*Descriptor, bool) {
	d, ok := m.descriptors[personaID]
	return d, ok
}

func (m *MemoryStore) Ensure(personaID string) *Descriptor {
	d, ok := m.descriptors[personaID]
	if !ok {
		d = &Descriptor{}
		m.descriptors[personaID] = d
	}
	return d
}

// Load replaces the store contents with records.
func (m *MemoryStore) Load(records map[string]Record) {
	m.descriptors = make(map[string]*Descriptor, len(records))
	for id, r := range records {
		rec := r
		m.descriptors[id] = &Descriptor{Pronoun: &rec}
	}
}

// Snapshot copies every persona that has a pronoun record.
func (m *MemoryStore) Snapshot() map[string]Record {
	out := make(map[string]Record, len(m.descriptors))
	for id, d := range m.descriptors {
		if d.Pronoun != nil {
			out[id] = *d.Pronoun
		}
	}
	return out
}

// Forget drops a persona entry.
func (m *MemoryStore) Forget(personaID string) {
	delete(m.descriptors, personaID)
}

// IDs returns the known persona IDs, sorted.
func (m *MemoryStore) IDs() []string {
	ids := make([]string, 0, len(m.descriptors))
	for id := range m.descriptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
