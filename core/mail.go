package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string

		// templated contents, rendered by Render
		TextTemplate string
		HTMLTemplate string
		TemplateData interface{}

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.TextTemplate != "" {
		tmpl, err := texttmpl.New("text").Option("missingkey=error").Parse(m.TextTemplate)
		if err != nil {
			return err
		}
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
			return err
		}
		m.TextContent = buff.String()
	}
	if m.HTMLTemplate != "" {
		tmpl, err := htmltmpl.New("html").Option("missingkey=error").Parse(m.HTMLTemplate)
		if err != nil {
			return err
		}
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// Addresses converts plain email strings to recipients, skipping unparsable ones.
func Addresses(emails ...string) []mail.Address {
	out := make([]mail.Address, 0, len(emails))
	for _, e := range emails {
		if addr, err := mail.ParseAddress(e); err == nil {
			out = append(out, *addr)
		}
	}
	return out
}
