package api

import (
	"time"

	"github.com/kalambet/pronouns/internal/pronoun"
)

// PersonaPronouns is the body of the persona pronoun endpoints.
type PersonaPronouns struct {
	ID       string         `json:"id"`
	Pronouns pronoun.Record `json:"pronouns"`
}

type ActivePersonaRequest struct {
	ID string `json:"id"`
}

// ReplaceRequest rewrites Text using the pronouns of PersonaID (the active
// persona when empty), optionally starting from Preset and overriding single
// fields. Shorthands defaults to true when omitted; alias tokens are still only
// emitted while shorthand macros are enabled.
type ReplaceRequest struct {
	Text       string `json:"text"`
	PersonaID  string `json:"persona_id,omitempty"`
	Shorthands *bool  `json:"shorthands,omitempty"`
	Preset     string `json:"preset,omitempty"`

	Subjective *string `json:"subjective,omitempty"`
	Objective  *string `json:"objective,omitempty"`
	PosDet     *string `json:"posDet,omitempty"`
	PosPro     *string `json:"posPro,omitempty"`
	Reflexive  *string `json:"reflexive,omitempty"`
}

// WantsShorthands reports the requested mode, true when unset.
func (r ReplaceRequest) WantsShorthands() bool {
	return r.Shorthands == nil || *r.Shorthands
}

// Overrides returns the per-field overrides keyed by slot.
func (r ReplaceRequest) Overrides() map[pronoun.Slot]string {
	out := make(map[pronoun.Slot]string)
	for slot, v := range map[pronoun.Slot]*string{
		pronoun.Subjective: r.Subjective,
		pronoun.Objective:  r.Objective,
		pronoun.PosDet:     r.PosDet,
		pronoun.PosPro:     r.PosPro,
		pronoun.Reflexive:  r.Reflexive,
	} {
		if v != nil {
			out[slot] = *v
		}
	}
	return out
}

type ReplaceResponse struct {
	Text    string                 `json:"text"`
	Mapping []pronoun.Substitution `json:"mapping"`
}

type ExpandRequest struct {
	Text string `json:"text"`
}

type ExpandResponse struct {
	Text string `json:"text"`
}

type Settings struct {
	Shorthands     bool     `json:"shorthands"`
	LiveShorthands []string `json:"live_shorthands"`
	ActivePersona  string   `json:"active_persona"`
}

type ShorthandsRequest struct {
	Enabled bool `json:"enabled"`
}

// HistoryEntry is one past replacement.
type HistoryEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	PersonaID string    `json:"persona_id"`
	Mode      string    `json:"mode"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
}
