package pronoun

import "errors"

var (
	// ErrNoPronounsConfigured is returned by Replace when every field of the
	// record is blank. The input text is returned alongside it unchanged.
	ErrNoPronounsConfigured = errors.New("no pronouns configured")

	// ErrUnknownSlot is returned when a field name is not one of the five slots.
	ErrUnknownSlot = errors.New("unknown pronoun slot")
)
