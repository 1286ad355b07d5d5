package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/macro"
	"github.com/kalambet/pronouns/internal/pronoun"
	"github.com/kalambet/pronouns/internal/storage"
)

// MacroHost is the registry surface the API exposes.
type MacroHost interface {
	List() []macro.Info
	Expand(text string) string
}

// ShorthandSwitch toggles the shorthand alias macros.
type ShorthandSwitch interface {
	SetEnabled(on bool) error
	Enabled() bool
	Live() []string
}

// History records completed replacements.
type History interface {
	SaveReplacement(ctx context.Context, r storage.Replacement) error
	RecentReplacements(ctx context.Context, limit int) ([]storage.Replacement, error)
}

type AppDeps struct {
	Pronouns   *pronoun.Manager
	Replacer   *pronoun.Replacer
	Macros     MacroHost
	Shorthands ShorthandSwitch
	History    History // optional; nil disables history
	// SaveSetting persists a config key; optional.
	SaveSetting func(key, value string) error
	Token       string
	Log         *zap.Logger
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(deps.Log))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token, deps.Log))

		r.Get("/personas/{id}/pronouns", handleGetPronouns(deps))
		r.Patch("/personas/{id}/pronouns", handlePatchPronouns(deps))
		r.Put("/personas/{id}/pronouns/preset/{preset}", handleApplyPreset(deps))
		r.Delete("/personas/{id}/pronouns", handleForgetPersona(deps))

		r.Get("/persona/active", handleGetActive(deps))
		r.Put("/persona/active", handleSetActive(deps))

		r.Post("/replace", handleReplace(deps))
		r.Get("/replace/table", handleReplaceTable(deps))
		r.Get("/replacements", handleListReplacements(deps))

		r.Get("/macros", handleListMacros(deps))
		r.Post("/macros/expand", handleExpandMacros(deps))

		r.Get("/settings", handleGetSettings(deps))
		r.Put("/settings/shorthands", handleSetShorthands(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func personaParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "persona id is required")
		return "", false
	}
	return id, true
}

func handleGetPronouns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := personaParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
	}
}

func handlePatchPronouns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := personaParam(w, r)
		if !ok {
			return
		}

		var fields map[string]string
		if !decodeBody(w, r, &fields) {
			return
		}

		// Validate every key before touching the record.
		slots := make(map[pronoun.Slot]string, len(fields))
		for key, value := range fields {
			slot, err := pronoun.ParseSlot(key)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			slots[slot] = value
		}

		deps.Pronouns.Update(id, func(rec *pronoun.Record) {
			for slot, value := range slots {
				rec.Set(slot, value)
			}
		})
		deps.Log.Debug("pronouns patched", zap.String("persona", id), zap.Int("fields", len(slots)))

		writeJSON(w, PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
	}
}

func handleApplyPreset(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := personaParam(w, r)
		if !ok {
			return
		}
		preset := chi.URLParam(r, "preset")
		if !deps.Pronouns.ApplyPreset(id, preset) {
			httpError(w, http.StatusNotFound, "not_found", "unknown preset %q (want one of %s)",
				preset, strings.Join(pronoun.PresetKeys(), ", "))
			return
		}
		writeJSON(w, PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
	}
}

func handleForgetPersona(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := personaParam(w, r)
		if !ok {
			return
		}
		deps.Pronouns.Forget(id)
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func handleGetActive(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := deps.Pronouns.Active()
		writeJSON(w, PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
	}
}

func handleSetActive(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ActivePersonaRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id := strings.TrimSpace(req.ID)
		deps.Pronouns.SetActive(id)
		if deps.SaveSetting != nil {
			if err := deps.SaveSetting("persona.active", id); err != nil {
				deps.Log.Warn("saving active persona", zap.Error(err))
			}
		}
		writeJSON(w, PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
	}
}

func handleListMacros(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := deps.Macros.List()
		if list == nil {
			list = []macro.Info{}
		}
		writeJSON(w, list)
	}
}

func handleExpandMacros(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExpandRequest
		if !decodeBody(w, r, &req) {
			return
		}
		writeJSON(w, ExpandResponse{Text: deps.Macros.Expand(req.Text)})
	}
}

func currentSettings(deps AppDeps) Settings {
	live := deps.Shorthands.Live()
	if live == nil {
		live = []string{}
	}
	return Settings{
		Shorthands:     deps.Shorthands.Enabled(),
		LiveShorthands: live,
		ActivePersona:  deps.Pronouns.Active(),
	}
}

func handleGetSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, currentSettings(deps))
	}
}

func handleSetShorthands(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShorthandsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Shorthands.SetEnabled(req.Enabled); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to toggle shorthands: %v", err)
			return
		}
		if deps.SaveSetting != nil {
			v := "false"
			if req.Enabled {
				v = "true"
			}
			if err := deps.SaveSetting("macros.shorthands", v); err != nil {
				deps.Log.Warn("saving shorthand setting", zap.Error(err))
			}
		}
		writeJSON(w, currentSettings(deps))
	}
}
