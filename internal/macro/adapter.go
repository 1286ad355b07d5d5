package macro

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/pronoun"
)

// Target is a namespace whose pronouns are exposed as macros, e.g. the
// user's persona. Current is called on every expansion.
type Target struct {
	Name string
	// Default targets also own the bare pronoun.<slot> names.
	Default bool
	Current func() pronoun.Record
}

// SlotSupplier returns a pull function reading slot from the target's
// current record.
func (t Target) SlotSupplier(slot pronoun.Slot) Supplier {
	return func() string { return t.Current().Get(slot) }
}

// Names returns the long-form macro names for slot under this target.
func (t Target) Names(slot pronoun.Slot) []string {
	names := []string{fmt.Sprintf("pronoun.%s.%s", t.Name, slot.MacroKey())}
	if t.Default {
		names = append([]string{pronoun.LongFormName(slot)}, names...)
	}
	return names
}

var descriptions = map[pronoun.Slot]string{
	pronoun.Subjective: "subjective pronoun",
	pronoun.Objective:  "objective pronoun",
	pronoun.PosDet:     "possessive determiner",
	pronoun.PosPro:     "possessive pronoun",
	pronoun.Reflexive:  "reflexive pronoun",
}

// Adapter registers long-form pronoun macros into a Host. Each name is
// registered at most once for the adapter's lifetime.
type Adapter struct {
	host Host
	log  *zap.Logger

	mu         sync.Mutex
	registered map[string]bool
}

// NewAdapter creates an Adapter over host.
func NewAdapter(host Host, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{host: host, log: log, registered: make(map[string]bool)}
}

// RegisterPronouns registers every long-form macro of target. Calling it
// again is a no-op for names already registered. Host errors are returned.
func (a *Adapter) RegisterPronouns(target Target) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, slot := range pronoun.Slots {
		desc := fmt.Sprintf("Current %s %s", target.Name, descriptions[slot])
		for _, name := range target.Names(slot) {
			if a.registered[name] {
				continue
			}
			if err := a.host.Register(name, target.SlotSupplier(slot), desc); err != nil {
				return fmt.Errorf("registering %s: %w", name, err)
			}
			a.registered[name] = true
			a.log.Debug("macro registered", zap.String("name", name))
		}
	}
	return nil
}

// Registered reports whether the adapter owns name.
func (a *Adapter) Registered(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registered[name]
}
