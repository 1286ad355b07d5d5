package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/kalambet/pronouns/internal/pronoun"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// printRecord writes one row per slot, blank values shown as "-".
func printRecord(w io.Writer, id string, rec pronoun.Record) {
	if id == "" {
		id = "(none)"
	}
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Persona:"), id)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, slot := range pronoun.Slots {
		v := rec.Get(slot)
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t{{%s}}\n", slot.Label(), v, pronoun.LongFormName(slot))
	}
	tw.Flush()
}

// printMapping writes the word→macro table a replace would apply.
func printMapping(w io.Writer, subs []pronoun.Substitution) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No pronouns to replace.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\t%s\t%s\n", colorize(colorBold, "WORD"), colorize(colorBold, "SLOT"), colorize(colorBold, "MACRO"))
	for _, s := range subs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.Word, s.Slot.Label(), colorize(colorCyan, s.Token))
	}
	tw.Flush()
}
