package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
)

// Invite describes a calendar invitation email.
type Invite struct {
	EventName     string
	Description   string
	OrganizerName string
	Start         time.Time
	Duration      time.Duration
	EventURL      string
}

// User-supplied fields pass through md so they render as plain text.
var inviteBody = template.Must(template.New("invite").Funcs(template.FuncMap{
	"md": escapeMarkdown,
}).Parse(`# {{md .EventName}}

{{if .OrganizerName}}**{{md .OrganizerName}}** invited you to meet.{{else}}You are invited to meet.{{end}}

- **When:** {{.When}}
- **Length:** {{.Length}}
{{if .Description}}
> {{md .Description}}
{{end}}
The calendar invite is attached; open it to add the meeting to your calendar.
{{if .EventURL}}
[View the event]({{.EventURL}})
{{end}}`))

// Subject returns the email subject line.
func (in Invite) Subject() string {
	return fmt.Sprintf("Invitation: %s @ %s", in.EventName, in.Start.UTC().Format("Mon Jan 2, 2006 15:04 MST"))
}

// RenderHTML renders the invitation body as HTML.
func (in Invite) RenderHTML() (string, error) {
	var md bytes.Buffer
	err := inviteBody.Execute(&md, map[string]string{
		"EventName":     in.EventName,
		"OrganizerName": in.OrganizerName,
		"Description":   in.Description,
		"When":          in.Start.UTC().Format("Monday, January 2, 2006 at 15:04 UTC"),
		"Length":        humanDuration(in.Duration),
		"EventURL":      in.EventURL,
	})
	if err != nil {
		return "", fmt.Errorf("render invite markdown: %w", err)
	}

	var html bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &html); err != nil {
		return "", fmt.Errorf("convert invite markdown: %w", err)
	}
	return html.String(), nil
}

// escapeMarkdown flattens s to one line and backslash-escapes every ASCII
// punctuation character, so links, images, emphasis and block markers in
// user input come out as literal text.
func escapeMarkdown(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// humanDuration formats d as "1 hour", "2 hours" or "90 minutes".
func humanDuration(d time.Duration) string {
	switch {
	case d > 0 && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d > 0 && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
