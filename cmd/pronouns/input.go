package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mattn/go-isatty"

	"github.com/kalambet/pronouns/internal/clipboard"
)

// stdin and stdinIsTerminal are swapped in tests.
var (
	stdin           io.Reader = os.Stdin
	stdinIsTerminal           = func() bool {
		fd := os.Stdin.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

var errNoInput = errors.New("no input: pass text, --file, --clipboard, or pipe text on stdin")

// inputSource says where replace reads its text from. At most one of Args,
// File and Clipboard is used, in that order; stdin is the fallback when it is
// not a terminal.
type inputSource struct {
	Args      []string
	File      string
	Clipboard bool
}

func readInput(ctx context.Context, src inputSource, cb clipboard.Clipboard) (string, error) {
	switch {
	case len(src.Args) > 0:
		return strings.Join(src.Args, " "), nil
	case src.File != "":
		return readFileText(src.File)
	case src.Clipboard:
		if cb == nil {
			return "", errors.New("clipboard not available")
		}
		text, ok := cb.ReadText(ctx)
		if !ok {
			return "", errors.New("clipboard is empty or unreadable")
		}
		return text, nil
	}

	if stdinIsTerminal() {
		return "", errNoInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", errNoInput
	}
	return string(data), nil
}

// readFileText returns the text of path. PDFs are reduced to their plain
// text; anything else is read as-is.
func readFileText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDFText(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

func readPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	return buf.String(), nil
}
