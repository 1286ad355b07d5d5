package pronoun

// preset keys in the order they are offered to users.
var presetKeys = []string{"she", "he", "they", "it"}

var presets = map[string]Record{
	"she":  {Subjective: "she", Objective: "her", PosDet: "her", PosPro: "hers", Reflexive: "herself"},
	"he":   {Subjective: "he", Objective: "him", PosDet: "his", PosPro: "his", Reflexive: "himself"},
	"they": {Subjective: "they", Objective: "them", PosDet: "their", PosPro: "theirs", Reflexive: "themselves"},
	"it":   {Subjective: "it", Objective: "it", PosDet: "its", PosPro: "its", Reflexive: "itself"},
}

// Preset returns the fixed record for key.
func Preset(key string) (Record, bool) {
	r, ok := presets[key]
	return r, ok
}

// PresetKeys returns the preset keys in display order.
func PresetKeys() []string {
	out := make([]string, len(presetKeys))
	copy(out, presetKeys)
	return out
}

// AliasEntry lists the shorthand macro names that may stand in for a slot.
type AliasEntry struct {
	Slot  Slot
	Names []string
}

// ShorthandAliases is the alias table, one entry per slot. Names are ordered
// she/he/they.
var ShorthandAliases = []AliasEntry{
	{Slot: Subjective, Names: []string{"she", "he", "they"}},
	{Slot: Objective, Names: []string{"her", "him", "them"}},
	{Slot: PosDet, Names: []string{"her_", "his_", "their_"}},
	{Slot: PosPro, Names: []string{"hers", "his", "theirs"}},
	{Slot: Reflexive, Names: []string{"herself", "himself", "themselves"}},
}

// AliasesFor returns the alias names for slot s in table.
func AliasesFor(table []AliasEntry, s Slot) []string {
	for _, e := range table {
		if e.Slot == s {
			return e.Names
		}
	}
	return nil
}
