package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/pronoun"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Pronouns *pronoun.Manager
	Replacer *pronoun.Replacer
	Macros   MacroHost
	Log      *zap.Logger
}

// NewMCPServer creates an MCP server exposing the pronoun tools and the
// active persona resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	s := server.NewMCPServer(
		"pronouns",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("pronouns: per-persona pronoun profiles and pronoun→macro rewriting."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("pronouns_get",
			mcp.WithDescription("Return the pronoun record of a persona (the active persona by default)."),
			mcp.WithString("persona", mcp.Description("Persona ID; defaults to the active persona")),
		),
		mcpGetPronouns(deps),
	)

	s.AddTool(
		mcp.NewTool("pronouns_set",
			mcp.WithDescription("Set one pronoun field of a persona."),
			mcp.WithString("key", mcp.Description("subjective, objective, posDet, posPro or reflexive"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to store"), mcp.Required()),
			mcp.WithString("persona", mcp.Description("Persona ID; defaults to the active persona")),
		),
		mcpSetPronoun(deps),
	)

	s.AddTool(
		mcp.NewTool("pronouns_set_preset",
			mcp.WithDescription("Overwrite all pronoun fields of a persona with a preset."),
			mcp.WithString("preset", mcp.Description("one of "+strings.Join(pronoun.PresetKeys(), ", ")), mcp.Required()),
			mcp.WithString("persona", mcp.Description("Persona ID; defaults to the active persona")),
		),
		mcpSetPreset(deps),
	)

	replaceOpts := []mcp.ToolOption{
		mcp.WithDescription("Rewrite literal pronouns in text as {{pronoun.*}} macro references."),
		mcp.WithString("text", mcp.Description("Text to rewrite"), mcp.Required()),
		mcp.WithBoolean("shorthands", mcp.Description("Prefer shorthand macros such as {{she}} when enabled (default true)")),
		mcp.WithString("preset", mcp.Description("Use a preset instead of the persona's pronouns")),
		mcp.WithString("persona", mcp.Description("Persona ID; defaults to the active persona")),
	}
	for _, slot := range pronoun.Slots {
		replaceOpts = append(replaceOpts,
			mcp.WithString(slot.Key(), mcp.Description("Override the "+strings.ToLower(slot.Label())+" for this call")))
	}
	s.AddTool(mcp.NewTool("pronouns_replace", replaceOpts...), mcpReplace(deps))

	s.AddTool(
		mcp.NewTool("macros_expand",
			mcp.WithDescription("Expand {{macro}} references using the current pronoun values."),
			mcp.WithString("text", mcp.Description("Text containing macro references"), mcp.Required()),
		),
		mcpExpand(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"persona://pronouns",
			"Active Persona Pronouns",
			mcp.WithResourceDescription("Pronoun record of the active persona as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePronouns(deps),
	)

	return s
}

func personaArg(deps MCPDeps, req mcp.CallToolRequest) string {
	if id := strings.TrimSpace(req.GetString("persona", "")); id != "" {
		return id
	}
	return deps.Pronouns.Active()
}

func mcpGetPronouns(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := personaArg(deps, req)
		b, err := json.Marshal(PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal pronouns: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetPronoun(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		id := personaArg(deps, req)
		ok, err := deps.Pronouns.SetField(id, key, value)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to set pronoun: %v", err)), nil
		}
		if !ok {
			return mcpError("no persona selected"), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s for %s", key, value, id)), nil
	}
}

func mcpSetPreset(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		preset, err := req.RequireString("preset")
		if err != nil {
			return mcpError("preset is required"), nil
		}
		id := personaArg(deps, req)
		if id == "" {
			return mcpError("no persona selected"), nil
		}
		if !deps.Pronouns.ApplyPreset(id, preset) {
			return mcpError(fmt.Sprintf("unknown preset %q", preset)), nil
		}
		return mcpText(fmt.Sprintf("Applied preset %s to %s", preset, id)), nil
	}
}

// slotOverrides collects the per-field string arguments that were supplied.
func slotOverrides(req mcp.CallToolRequest) map[pronoun.Slot]string {
	args := req.GetArguments()
	out := make(map[pronoun.Slot]string)
	for _, slot := range pronoun.Slots {
		if v, ok := args[slot.Key()].(string); ok {
			out[slot] = v
		}
	}
	return out
}

func mcpReplace(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		rec, err := resolveRecord(deps.Pronouns, personaArg(deps, req), req.GetString("preset", ""), slotOverrides(req))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		out, err := deps.Replacer.Replace(text, rec, modeFor(req.GetBool("shorthands", true)))
		if errors.Is(err, pronoun.ErrNoPronounsConfigured) {
			return mcpError("no pronouns configured; set them with pronouns_set or pronouns_set_preset"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("replace failed: %v", err)), nil
		}
		return mcpText(out), nil
	}
}

func mcpExpand(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		return mcpText(deps.Macros.Expand(text)), nil
	}
}

func mcpResourcePronouns(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := deps.Pronouns.Active()
		b, err := json.Marshal(PersonaPronouns{ID: id, Pronouns: deps.Pronouns.Get(id)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pronouns: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
