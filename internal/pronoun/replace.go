package pronoun

import (
	"regexp"
	"strings"
)

// Mode selects which macro names Replace emits.
type Mode int

const (
	// ModeLongForm always emits {{pronoun.<slot>}}.
	ModeLongForm Mode = iota
	// ModeShorthand emits {{<alias>}} when shorthands are globally enabled and
	// an alias matches the pronoun, falling back to the long form.
	ModeShorthand
)

// precedence resolves words shared by several slots: the first slot to claim
// a word keeps it.
var precedence = []Slot{Reflexive, PosPro, Objective, PosDet, Subjective}

// Substitution maps one literal pronoun word to the macro token replacing it.
type Substitution struct {
	Slot  Slot   `json:"slot"`
	Word  string `json:"word"`
	Token string `json:"token"`
}

// Replacer rewrites literal pronoun words as macro references.
type Replacer struct {
	Aliases []AliasEntry
	// ShorthandsEnabled reports whether alias tokens may be emitted. Nil means
	// off.
	ShorthandsEnabled func() bool
}

// NewReplacer creates a Replacer over the default alias table.
func NewReplacer(shorthandsEnabled func() bool) *Replacer {
	return &Replacer{Aliases: ShorthandAliases, ShorthandsEnabled: shorthandsEnabled}
}

// Mapping builds the word→token table for rec in precedence order. Words are
// lower-cased and trimmed; a word already claimed by an earlier slot is
// skipped.
func (rp *Replacer) Mapping(rec Record, mode Mode) []Substitution {
	useShort := mode == ModeShorthand && rp.ShorthandsEnabled != nil && rp.ShorthandsEnabled()

	seen := make(map[string]bool, len(precedence))
	subs := make([]Substitution, 0, len(precedence))
	for _, slot := range precedence {
		v := strings.TrimSpace(rec.Get(slot))
		if v == "" {
			continue
		}
		lower := strings.ToLower(v)
		if seen[lower] {
			continue
		}
		seen[lower] = true

		name := ""
		if useShort {
			name = rp.matchAlias(slot, lower)
		}
		if name == "" {
			name = LongFormName(slot)
		}
		subs = append(subs, Substitution{Slot: slot, Word: lower, Token: "{{" + name + "}}"})
	}
	return subs
}

// matchAlias picks the first alias for slot that starts with the lower-cased
// pronoun value.
func (rp *Replacer) matchAlias(slot Slot, lower string) string {
	for _, name := range AliasesFor(rp.Aliases, slot) {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			return name
		}
	}
	return ""
}

// Replace substitutes whole-word, case-insensitive occurrences of rec's
// pronouns in text with macro tokens. Text around matches is preserved
// byte for byte. When rec has no pronouns, text is returned unchanged with
// ErrNoPronounsConfigured.
func (rp *Replacer) Replace(text string, rec Record, mode Mode) (string, error) {
	if text == "" {
		return "", nil
	}
	if rec.Empty() {
		return text, ErrNoPronounsConfigured
	}

	subs := rp.Mapping(rec, mode)
	if len(subs) == 0 {
		return text, nil
	}

	tokens := make(map[string]string, len(subs))
	alts := make([]string, len(subs))
	for i, s := range subs {
		tokens[s.Word] = s.Token
		alts[i] = regexp.QuoteMeta(s.Word)
	}
	re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
	if err != nil {
		return text, err
	}

	return re.ReplaceAllStringFunc(text, func(m string) string {
		if tok, ok := tokens[strings.ToLower(m)]; ok {
			return tok
		}
		return m
	}), nil
}

// LongFormName is the canonical macro name for slot, e.g. "pronoun.pos_det".
func LongFormName(slot Slot) string {
	return "pronoun." + slot.MacroKey()
}
