package macro

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/pronoun"
)

// Shorthands toggles the short alias macros ("she", "his_", ...) of one
// target. Re-enabling is skipped while the live set is non-empty, and it only
// ever unregisters names it registered itself.
type Shorthands struct {
	host    Host
	target  Target
	aliases []pronoun.AliasEntry
	log     *zap.Logger

	mu   sync.Mutex
	live map[string]bool
	// want is the last applied state; it can be true while live is empty
	// when every alias was already taken.
	want bool
}

// NewShorthands creates a disabled manager for target using the given
// alias table.
func NewShorthands(host Host, target Target, aliases []pronoun.AliasEntry, log *zap.Logger) *Shorthands {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shorthands{
		host:    host,
		target:  target,
		aliases: aliases,
		log:     log,
		live:    make(map[string]bool),
	}
}

// SetEnabled registers or unregisters the aliases. Requesting the current
// state again does nothing. A failed enable unregisters whatever it added and
// leaves the manager disabled, so the next attempt starts over.
func (s *Shorthands) SetEnabled(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on {
		if len(s.live) > 0 {
			s.want = true
			return nil
		}
		added := make([]string, 0, len(s.aliases)*3)
		for _, e := range s.aliases {
			for _, name := range e.Names {
				if s.live[name] || s.host.Has(name) {
					s.log.Debug("shorthand taken, skipping",
						zap.String("target", s.target.Name),
						zap.String("name", name),
					)
					continue
				}
				desc := fmt.Sprintf("Shorthand for %s", pronoun.LongFormName(e.Slot))
				if err := s.host.Register(name, s.target.SlotSupplier(e.Slot), desc); err != nil {
					s.rollback(added)
					return fmt.Errorf("registering shorthand %s: %w", name, err)
				}
				s.live[name] = true
				added = append(added, name)
			}
		}
		s.want = true
		s.log.Info("shorthand macros enabled",
			zap.String("target", s.target.Name),
			zap.Int("count", len(s.live)),
		)
		return nil
	}

	s.want = false
	if len(s.live) == 0 {
		return nil
	}
	for name := range s.live {
		s.host.Unregister(name)
	}
	s.log.Info("shorthand macros disabled",
		zap.String("target", s.target.Name),
		zap.Int("count", len(s.live)),
	)
	s.live = make(map[string]bool)
	return nil
}

func (s *Shorthands) rollback(names []string) {
	for _, name := range names {
		s.host.Unregister(name)
		delete(s.live, name)
	}
	s.want = false
	s.log.Warn("shorthand enable rolled back",
		zap.String("target", s.target.Name),
		zap.Int("unregistered", len(names)),
	)
}

// Enabled reports the last successfully applied state, i.e. the global
// shorthand setting as seen by this target.
func (s *Shorthands) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.want
}

// Active reports whether shorthands are enabled and this target owns at least
// one alias. Replacement should only emit alias tokens while Active.
func (s *Shorthands) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.want && len(s.live) > 0
}

// Live returns the alias names currently registered by this manager, sorted.
func (s *Shorthands) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.live))
	for name := range s.live {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
