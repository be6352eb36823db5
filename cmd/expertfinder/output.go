package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/expertfinder/internal/directory"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// diag receives status lines; results go to the command's stdout.
var diag io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(diag, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(diag, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(diag, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(diag, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(diag, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

// writeProfileLine prints one search hit: name, title, email and user id.
func writeProfileLine(w io.Writer, p directory.Profile) {
	name := colorize(colorBold, p.DisplayName)
	if p.Title != "" {
		name += " (" + p.Title + ")"
	}
	fmt.Fprintf(w, "%s <%s> %s\n", name, p.Email, colorize(colorDim, p.UserID))
}

// writeProfile prints every field of a profile, one per line.
func writeProfile(w io.Writer, p directory.Profile, directoryHost string) {
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, label+":"), value)
	}
	field("Name", p.DisplayName)
	field("Title", p.Title)
	field("Email", p.Email)
	field("User ID", p.UserID)
	field("Photo", p.PhotoURL)
	field("Profile", directory.ProfileURL(directoryHost, p.UserID))
}
