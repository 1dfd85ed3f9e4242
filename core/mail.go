package core

import (
	"fmt"
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// SetBody sets both the plain text content and a minimal HTML rendition of it.
func (m *EmailMessage) SetBody(lines ...string) {
	m.TextContent = strings.Join(lines, "\n")

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	for _, line := range lines {
		_, _ = fmt.Fprintf(&b, "<p>%s</p>", line)
	}
	b.WriteString("</div>")
	m.HTMLContent = b.String()
}
