package core

import (
	"net/mail"
)

// Email categories, used to group deliveries in the mail provider.
const (
	MailCategoryActivity = "actividad-publicada"
)

type (
	EmailMessage struct {
		To       []mail.Address
		Cc       []mail.Address
		Bcc      []mail.Address
		ReplyTo  *mail.Address
		Subject  string
		Body     string // text/plain
		Category string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.Body != "" }

// Deliverable reports whether m has someone to go to and something to say.
func (m *EmailMessage) Deliverable() bool { return m != nil && m.HasRecipients() && m.HasContent() }
