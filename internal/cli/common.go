package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return text.FgRed.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprint("✓ ") + msg
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprint("⚠ ") + msg
}

// FormatKV renders a single "key: value" line with the key highlighted.
func FormatKV(key string, value interface{}) string {
	return fmt.Sprintf("%s %v", text.FgHiCyan.Sprint(key+":"), value)
}
