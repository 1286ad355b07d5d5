// Package clipboard reads and writes the system clipboard for the replace
// command. Failures are reported as a false result, never as errors.
package clipboard

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// Clipboard is the narrow surface the CLI needs.
type Clipboard interface {
	ReadText(ctx context.Context) (string, bool)
	WriteText(ctx context.Context, s string) bool
}

// Package-level so tests can swap them out.
var (
	readAll  = clipboard.ReadAll
	writeAll = clipboard.WriteAll
)

// System uses the platform clipboard (pbcopy, xclip, xsel, wl-clipboard).
type System struct {
	log *zap.Logger
}

func NewSystem(log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	return &System{log: log}
}

// Supported reports whether a clipboard utility was found.
func (s *System) Supported() bool {
	return !clipboard.Unsupported
}

// ReadText returns the clipboard text. An unavailable clipboard or a
// whitespace-only value yields ("", false).
func (s *System) ReadText(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	text, err := readAll()
	if err != nil {
		s.log.Debug("clipboard read failed", zap.Error(err))
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func (s *System) WriteText(ctx context.Context, text string) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := writeAll(text); err != nil {
		s.log.Debug("clipboard write failed", zap.Error(err))
		return false
	}
	return true
}
