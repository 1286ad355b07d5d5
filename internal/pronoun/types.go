package pronoun

import (
	"fmt"
	"strings"
)

// Record is the pronoun profile attached to a persona. The zero value is the
// all-empty record.
type Record struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	PosDet     string `json:"posDet"`
	PosPro     string `json:"posPro"`
	Reflexive  string `json:"reflexive"`
}

// Empty reports whether every field is blank after trimming.
func (r Record) Empty() bool {
	for _, s := range Slots {
		if strings.TrimSpace(r.Get(s)) != "" {
			return false
		}
	}
	return true
}

// Get returns the value stored in slot s.
func (r Record) Get(s Slot) string {
	switch s {
	case Subjective:
		return r.Subjective
	case Objective:
		return r.Objective
	case PosDet:
		return r.PosDet
	case PosPro:
		return r.PosPro
	case Reflexive:
		return r.Reflexive
	}
	return ""
}

// Set stores v in slot s.
func (r *Record) Set(s Slot, v string) {
	switch s {
	case Subjective:
		r.Subjective = v
	case Objective:
		r.Objective = v
	case PosDet:
		r.PosDet = v
	case PosPro:
		r.PosPro = v
	case Reflexive:
		r.Reflexive = v
	}
}

// Slot is one of the five grammatical roles a pronoun fills.
type Slot int

const (
	Subjective Slot = iota
	Objective
	PosDet
	PosPro
	Reflexive
)

// Slots lists every slot in declaration order.
var Slots = []Slot{Subjective, Objective, PosDet, PosPro, Reflexive}

var slotNames = [...]struct {
	key, macro, label string
}{
	Subjective: {"subjective", "subjective", "Subjective"},
	Objective:  {"objective", "objective", "Objective"},
	PosDet:     {"posDet", "pos_det", "Possessive determiner"},
	PosPro:     {"posPro", "pos_pro", "Possessive pronoun"},
	Reflexive:  {"reflexive", "reflexive", "Reflexive"},
}

// Key is the record field name, e.g. "posDet".
func (s Slot) Key() string { return slotNames[s].key }

// MacroKey is the macro suffix, e.g. "pos_det".
func (s Slot) MacroKey() string { return slotNames[s].macro }

// Label is a human readable name for the slot.
func (s Slot) Label() string { return slotNames[s].label }

func (s Slot) String() string { return s.Key() }

func (s Slot) MarshalText() ([]byte, error) { return []byte(s.Key()), nil }

func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSlot accepts either the record key or the macro key, case-insensitively.
func ParseSlot(name string) (Slot, error) {
	n := strings.TrimSpace(name)
	for _, s := range Slots {
		if strings.EqualFold(n, s.Key()) || strings.EqualFold(n, s.MacroKey()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// Descriptor is the per-persona entry kept by a Store. A nil Pronoun is a
// persona the host knows about but that has no pronouns yet.
type Descriptor struct {
	Pronoun *Record
}
