package events

import (
	"fmt"
	"strings"
)

// Severity classifies an event for display and logging.
type Severity string

const (
	// SeverityNormal is an expected lifecycle step.
	SeverityNormal Severity = "Normal"

	// SeverityWarning marks a session that ended without the user asking.
	SeverityWarning Severity = "Warning"
)

// Severity reports how noteworthy the event is.
func (e Event) Severity() Severity {
	if e.Kind == SessionEnded && e.Reason != "" && e.Reason != "user_logout" {
		return SeverityWarning
	}
	return SeverityNormal
}

// MessageRenderer turns session events into human-readable messages.
type MessageRenderer struct {
	templates map[Kind]string
}

// NewMessageRenderer creates a renderer with the default templates loaded.
func NewMessageRenderer() *MessageRenderer {
	r := &MessageRenderer{templates: make(map[Kind]string)}
	r.loadDefaultTemplates()
	return r
}

func (r *MessageRenderer) loadDefaultTemplates() {
	r.templates[LoggedIn] = "Logged in{{if .Subject}} as {{.Subject}}{{end}}{{if .Reason}} ({{.Reason}}){{end}}"
	r.templates[CredentialRefreshed] = "Credential{{if .Subject}} for {{.Subject}}{{end}} refreshed"
	r.templates[SessionEnded] = "Session{{if .Subject}} for {{.Subject}}{{end}} ended{{if .Reason}}: {{.Reason}}{{end}}"
}

// SetTemplate overrides the template used for kind.
func (r *MessageRenderer) SetTemplate(kind Kind, template string) {
	r.templates[kind] = template
}

// GetTemplate returns the template registered for kind.
func (r *MessageRenderer) GetTemplate(kind Kind) (string, bool) {
	t, ok := r.templates[kind]
	return t, ok
}

// Render produces the message for ev. Reasons are shown with spaces
// instead of underscores.
func (r *MessageRenderer) Render(ev Event) string {
	template, ok := r.templates[ev.Kind]
	if !ok {
		return fmt.Sprintf("Session event %s", ev)
	}

	reason := strings.ReplaceAll(ev.Reason, "_", " ")
	result := renderConditional(template, "{{if .Subject}}", ev.Subject != "")
	result = renderConditional(result, "{{if .Reason}}", reason != "")
	result = strings.ReplaceAll(result, "{{.Subject}}", ev.Subject)
	result = strings.ReplaceAll(result, "{{.Reason}}", reason)
	return result
}

// renderConditional resolves every {{if ...}}...{{end}} block opened by
// marker. Blocks do not nest.
func renderConditional(template, marker string, keep bool) string {
	const endMarker = "{{end}}"
	for {
		start := strings.Index(template, marker)
		if start == -1 {
			return template
		}
		end := strings.Index(template[start:], endMarker)
		if end == -1 {
			return template
		}
		end += start

		before := template[:start]
		after := template[end+len(endMarker):]
		if keep {
			template = before + template[start+len(marker):end] + after
		} else {
			template = before + after
		}
	}
}

var defaultRenderer = NewMessageRenderer()

// Message renders ev with the default templates.
func Message(ev Event) string {
	return defaultRenderer.Render(ev)
}
