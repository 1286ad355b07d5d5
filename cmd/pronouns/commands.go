package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/api"
	"github.com/kalambet/pronouns/internal/clipboard"
	"github.com/kalambet/pronouns/internal/config"
	"github.com/kalambet/pronouns/internal/pronoun"
)

var errNoPersona = errors.New("no active persona; pass --persona or run `pronouns persona use <id>`")

func personaPath(id string) string {
	return "/personas/" + url.PathEscape(id) + "/pronouns"
}

// resolvePersona returns explicit when set, otherwise the server's active
// persona.
func resolvePersona(ctx context.Context, c *apiClient, explicit string) (string, error) {
	if id := strings.TrimSpace(explicit); id != "" {
		return id, nil
	}
	resp, err := c.get(ctx, "/persona/active")
	if err != nil {
		return "", err
	}
	var active api.PersonaPronouns
	if err := decodeJSON(resp, &active); err != nil {
		return "", err
	}
	if active.ID == "" {
		return "", errNoPersona
	}
	return active.ID, nil
}

// --- show / set / preset ---

var pronounsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a persona's pronouns",
	RunE: func(cmd *cobra.Command, args []string) error {
		persona, _ := cmd.Flags().GetString("persona")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showPronouns(cmd.Context(), client, cmd.OutOrStdout(), persona, asJSON)
	},
}

func showPronouns(ctx context.Context, c *apiClient, w io.Writer, persona string, asJSON bool) error {
	id, err := resolvePersona(ctx, c, persona)
	if err != nil {
		return err
	}
	resp, err := c.get(ctx, personaPath(id))
	if err != nil {
		return err
	}
	var pp api.PersonaPronouns
	if err := decodeJSON(resp, &pp); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pp)
	}
	printRecord(w, pp.ID, pp.Pronouns)
	return nil
}

var pronounsSetCmd = &cobra.Command{
	Use:   "set <field> <value> [<field> <value>...]",
	Short: "Set pronoun fields (subjective, objective, posDet, posPro, reflexive)",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return errors.New("expected field/value pairs")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		persona, _ := cmd.Flags().GetString("persona")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return setPronouns(cmd.Context(), client, cmd.OutOrStdout(), persona, args)
	},
}

func setPronouns(ctx context.Context, c *apiClient, w io.Writer, persona string, pairs []string) error {
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		slot, err := pronoun.ParseSlot(pairs[i])
		if err != nil {
			return err
		}
		fields[slot.Key()] = pairs[i+1]
	}

	id, err := resolvePersona(ctx, c, persona)
	if err != nil {
		return err
	}
	resp, err := c.patch(ctx, personaPath(id), fields)
	if err != nil {
		return err
	}
	var pp api.PersonaPronouns
	if err := decodeJSON(resp, &pp); err != nil {
		return err
	}

	printSuccess("Updated %d field(s) for %s", len(fields), pp.ID)
	printRecord(w, pp.ID, pp.Pronouns)
	return nil
}

var pronounsPresetCmd = &cobra.Command{
	Use:   "preset <" + strings.Join(pronoun.PresetKeys(), "|") + ">",
	Short: "Overwrite every field with a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		persona, _ := cmd.Flags().GetString("persona")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return applyPreset(cmd.Context(), client, cmd.OutOrStdout(), persona, args[0])
	},
}

func applyPreset(ctx context.Context, c *apiClient, w io.Writer, persona, preset string) error {
	id, err := resolvePersona(ctx, c, persona)
	if err != nil {
		return err
	}
	resp, err := c.put(ctx, personaPath(id)+"/preset/"+url.PathEscape(preset), nil)
	if err != nil {
		return err
	}
	var pp api.PersonaPronouns
	if err := decodeJSON(resp, &pp); err != nil {
		return err
	}

	printSuccess("Applied %s to %s", preset, pp.ID)
	printRecord(w, pp.ID, pp.Pronouns)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{pronounsShowCmd, pronounsSetCmd, pronounsPresetCmd} {
		c.Flags().String("persona", "", "persona ID (default: the active persona)")
	}
	pronounsShowCmd.Flags().Bool("json", false, "print as JSON")

	rootCmd.AddCommand(pronounsShowCmd)
	rootCmd.AddCommand(pronounsSetCmd)
	rootCmd.AddCommand(pronounsPresetCmd)
}

// --- persona ---

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Select or forget personas",
}

var personaActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Print the active persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		id, err := resolvePersona(cmd.Context(), client, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var personaUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a persona active (empty string clears it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/persona/active", api.ActivePersonaRequest{ID: args[0]})
		if err != nil {
			return err
		}
		var pp api.PersonaPronouns
		if err := decodeJSON(resp, &pp); err != nil {
			return err
		}
		if pp.ID == "" {
			printSuccess("Cleared the active persona")
			return nil
		}
		printSuccess("Active persona is now %s", pp.ID)
		return nil
	},
}

var personaForgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a persona's pronouns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), personaPath(args[0]))
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Forgot %s", args[0])
		return nil
	},
}

func init() {
	personaCmd.AddCommand(personaActiveCmd)
	personaCmd.AddCommand(personaUseCmd)
	personaCmd.AddCommand(personaForgetCmd)
}

// --- replace ---

type replaceOptions struct {
	Input      inputSource
	Persona    string
	Preset     string
	Shorthands bool
	Overrides  map[pronoun.Slot]string
	Table      bool
	Copy       bool
}

func (o replaceOptions) request(text string) api.ReplaceRequest {
	req := api.ReplaceRequest{
		Text:       text,
		PersonaID:  o.Persona,
		Preset:     o.Preset,
		Shorthands: &o.Shorthands,
	}
	for slot, v := range o.Overrides {
		v := v
		switch slot {
		case pronoun.Subjective:
			req.Subjective = &v
		case pronoun.Objective:
			req.Objective = &v
		case pronoun.PosDet:
			req.PosDet = &v
		case pronoun.PosPro:
			req.PosPro = &v
		case pronoun.Reflexive:
			req.Reflexive = &v
		}
	}
	return req
}

var replaceCmd = &cobra.Command{
	Use:   "replace [text...]",
	Short: "Rewrite pronouns in text as {{pronoun.*}} macros",
	Long: `Rewrite every whole-word occurrence of the persona's pronouns with the
macro that expands to it. Text comes from the arguments, --file (plain text
or PDF), --clipboard, or stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := replaceOptions{Input: inputSource{Args: args}, Overrides: map[pronoun.Slot]string{}}
		opts.Input.File, _ = cmd.Flags().GetString("file")
		opts.Input.Clipboard, _ = cmd.Flags().GetBool("clipboard")
		opts.Persona, _ = cmd.Flags().GetString("persona")
		opts.Preset, _ = cmd.Flags().GetString("preset")
		opts.Shorthands, _ = cmd.Flags().GetBool("shorthands")
		opts.Table, _ = cmd.Flags().GetBool("table")
		opts.Copy, _ = cmd.Flags().GetBool("copy")
		for _, slot := range pronoun.Slots {
			if cmd.Flags().Changed(slot.Key()) {
				opts.Overrides[slot], _ = cmd.Flags().GetString(slot.Key())
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var cb clipboard.Clipboard
		if opts.Input.Clipboard || opts.Copy {
			cb = clipboard.NewSystem(zap.NewNop())
		}
		return runReplace(cmd.Context(), client, cb, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
	},
}

func runReplace(ctx context.Context, c *apiClient, cb clipboard.Clipboard, out, errOut io.Writer, opts replaceOptions) error {
	text, err := readInput(ctx, opts.Input, cb)
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, "/replace", opts.request(text))
	if err != nil {
		return err
	}
	var result api.ReplaceResponse
	if err := decodeJSON(resp, &result); err != nil {
		if _, ok := isAPIErrorType(err, "no_pronouns_configured"); ok {
			printWarning("Text left unchanged.")
			return errors.New("no pronouns configured; run `pronouns preset <key>` or pass --preset")
		}
		return err
	}

	fmt.Fprint(out, result.Text)
	if !strings.HasSuffix(result.Text, "\n") {
		fmt.Fprintln(out)
	}
	if opts.Table {
		printMapping(errOut, result.Mapping)
	}
	if opts.Copy {
		if cb == nil || !cb.WriteText(ctx, result.Text) {
			printWarning("Could not copy the result to the clipboard")
		} else {
			printSuccess("Copied to clipboard")
		}
	}
	return nil
}

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Show which words replace would rewrite, and into what",
	RunE: func(cmd *cobra.Command, args []string) error {
		persona, _ := cmd.Flags().GetString("persona")
		preset, _ := cmd.Flags().GetString("preset")
		shorthands, _ := cmd.Flags().GetBool("shorthands")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showMapping(cmd.Context(), client, cmd.OutOrStdout(), persona, preset, shorthands)
	},
}

func showMapping(ctx context.Context, c *apiClient, w io.Writer, persona, preset string, shorthands bool) error {
	q := url.Values{}
	if persona != "" {
		q.Set("persona", persona)
	}
	if preset != "" {
		q.Set("preset", preset)
	}
	q.Set("shorthands", strconv.FormatBool(shorthands))
	path := "/replace/table"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	var subs []pronoun.Substitution
	if err := decodeJSON(resp, &subs); err != nil {
		return err
	}
	printMapping(w, subs)
	return nil
}

func init() {
	replaceCmd.Flags().String("file", "", "read text from a file (PDFs are converted to plain text)")
	replaceCmd.Flags().Bool("clipboard", false, "read text from the clipboard")
	replaceCmd.Flags().Bool("copy", false, "copy the result to the clipboard")
	replaceCmd.Flags().Bool("table", false, "print the word→macro mapping to stderr")
	for _, c := range []*cobra.Command{replaceCmd, mappingCmd} {
		c.Flags().String("persona", "", "persona ID (default: the active persona)")
		c.Flags().String("preset", "", "start from a preset instead of the persona's record")
		c.Flags().Bool("shorthands", true, "prefer short alias macros where enabled (--shorthands=false for long form)")
	}
	for _, slot := range pronoun.Slots {
		replaceCmd.Flags().String(slot.Key(), "", "override the "+strings.ToLower(slot.Label()))
	}

	rootCmd.AddCommand(mappingCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent replacements",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listHistory(cmd.Context(), client, cmd.OutOrStdout(), limit)
	},
}

func listHistory(ctx context.Context, c *apiClient, w io.Writer, limit int) error {
	resp, err := c.get(ctx, fmt.Sprintf("/replacements?limit=%d", limit))
	if err != nil {
		return err
	}
	var entries []api.HistoryEntry
	if err := decodeJSON(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No replacements found.")
		return nil
	}
	for _, e := range entries {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		in := strings.ReplaceAll(e.Input, "\n", " ")
		if len(in) > 60 {
			in = in[:60] + "..."
		}
		fmt.Fprintf(w, "%s  %s  %-9s  %s  %s\n",
			colorize(colorCyan, id),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Mode,
			e.PersonaID,
			in,
		)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of replacements to list")
}

// --- macros ---

var macrosCmd = &cobra.Command{
	Use:   "macros",
	Short: "List or expand macros",
}

var macrosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered macros",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/macros")
		if err != nil {
			return err
		}
		var list []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, m := range list {
			fmt.Fprintf(w, "  %s  %s\n", colorize(colorBold, "{{"+m.Name+"}}"), m.Description)
		}
		return nil
	},
}

var macrosExpandCmd = &cobra.Command{
	Use:   "expand [text...]",
	Short: "Expand macros in text (arguments or stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd.Context(), inputSource{Args: args}, nil)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/macros/expand", api.ExpandRequest{Text: text})
		if err != nil {
			return err
		}
		var result api.ExpandResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(result.Text, "\n"))
		return nil
	},
}

func init() {
	macrosCmd.AddCommand(macrosListCmd)
	macrosCmd.AddCommand(macrosExpandCmd)
}

// --- shorthands ---

var shorthandsCmd = &cobra.Command{
	Use:       "shorthands <on|off>",
	Short:     "Turn the short alias macros ({{she}}, {{his_}}, ...) on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return setShorthands(cmd.Context(), client, args[0])
	},
}

func setShorthands(ctx context.Context, c *apiClient, state string) error {
	var on bool
	switch strings.ToLower(state) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("expected on or off, got %q", state)
	}

	resp, err := c.put(ctx, "/settings/shorthands", api.ShorthandsRequest{Enabled: on})
	if err != nil {
		return err
	}
	var s api.Settings
	if err := decodeJSON(resp, &s); err != nil {
		return err
	}
	if !s.Shorthands {
		printSuccess("Shorthands off")
		return nil
	}
	printSuccess("Shorthands on (%d live)", len(s.LiveShorthands))
	if len(s.LiveShorthands) == 0 {
		printWarning("Every alias name is already taken by another macro")
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func printConfig(w io.Writer, cfg config.Config) {
	for _, k := range config.ShowAll(cfg) {
		line := fmt.Sprintf("  %s = %s", colorize(colorBold, k.Key), k.Value)
		if k.FromEnv {
			line += colorize(colorYellow, " (from $"+k.EnvVar+")")
		}
		fmt.Fprintln(w, line)
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where configuration is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.FilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
}
