package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/pronoun"
	"github.com/kalambet/pronouns/internal/storage"
)

var errUnknownPreset = errors.New("unknown preset")

// resolveRecord picks the record a replacement runs against: the preset when
// one is named, otherwise the persona's current pronouns, with overrides
// applied on top. Nothing is written back to the store.
func resolveRecord(mgr *pronoun.Manager, personaID, preset string, overrides map[pronoun.Slot]string) (pronoun.Record, error) {
	var rec pronoun.Record
	if preset != "" {
		p, ok := pronoun.Preset(preset)
		if !ok {
			return pronoun.Record{}, fmt.Errorf("%w %q", errUnknownPreset, preset)
		}
		rec = p
	} else {
		if personaID == "" {
			personaID = mgr.Active()
		}
		rec = mgr.Get(personaID)
	}
	for slot, v := range overrides {
		rec.Set(slot, v)
	}
	return rec, nil
}

func modeFor(shorthands bool) pronoun.Mode {
	if shorthands {
		return pronoun.ModeShorthand
	}
	return pronoun.ModeLongForm
}

func modeName(m pronoun.Mode) string {
	if m == pronoun.ModeShorthand {
		return "shorthand"
	}
	return "long"
}

func handleReplace(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReplaceRequest
		if !decodeBody(w, r, &req) {
			return
		}

		rec, err := resolveRecord(deps.Pronouns, req.PersonaID, req.Preset, req.Overrides())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		mode := modeFor(req.WantsShorthands())
		out, err := deps.Replacer.Replace(req.Text, rec, mode)
		if errors.Is(err, pronoun.ErrNoPronounsConfigured) {
			writeJSONStatus(w, http.StatusUnprocessableEntity, errorBody{
				Error: errorDetail{Message: err.Error(), Type: "no_pronouns_configured"},
				Text:  &req.Text,
			})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "replace failed: %v", err)
			return
		}

		if deps.History != nil && out != req.Text {
			personaID := req.PersonaID
			if personaID == "" && req.Preset == "" {
				personaID = deps.Pronouns.Active()
			}
			entry := storage.Replacement{
				ID:        uuid.NewString(),
				CreatedAt: time.Now().UTC(),
				PersonaID: personaID,
				Mode:      modeName(mode),
				Input:     req.Text,
				Output:    out,
			}
			if err := deps.History.SaveReplacement(r.Context(), entry); err != nil {
				deps.Log.Warn("saving replacement history", zap.Error(err),
					zap.String("request_id", RequestIDFrom(r.Context())))
			}
		}

		writeJSON(w, ReplaceResponse{Text: out, Mapping: deps.Replacer.Mapping(rec, mode)})
	}
}

// handleReplaceTable previews the word→macro table without rewriting text.
func handleReplaceTable(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		shorthands := true
		if v := q.Get("shorthands"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid shorthands value %q", v)
				return
			}
			shorthands = b
		}

		rec, err := resolveRecord(deps.Pronouns, q.Get("persona"), q.Get("preset"), nil)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, deps.Replacer.Mapping(rec, modeFor(shorthands)))
	}
}

func handleListReplacements(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := []HistoryEntry{}
		if deps.History == nil {
			writeJSON(w, entries)
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		list, err := deps.History.RecentReplacements(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list replacements: %v", err)
			return
		}
		for _, rp := range list {
			entries = append(entries, HistoryEntry{
				ID:        rp.ID,
				CreatedAt: rp.CreatedAt,
				PersonaID: rp.PersonaID,
				Mode:      rp.Mode,
				Input:     rp.Input,
				Output:    rp.Output,
			})
		}
		writeJSON(w, entries)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
