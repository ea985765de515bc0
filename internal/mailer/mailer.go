// Package mailer dispatches composed messages over SMTP with the RFC 8058
// one-click unsubscribe headers attached.
package mailer

import (
	"fmt"

	"unsubscribe_service/internal/config"
	"unsubscribe_service/internal/models"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

func New(cfg config.Email) *Mailer {
	return &Mailer{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Sender:   cfg.Sender,
	}
}

// Send delivers one message. The List-Unsubscribe and List-Unsubscribe-Post
// headers must keep this exact shape for mail clients to offer one-click
// unsubscribe.
func (m *Mailer) Send(email models.OutboundEmail) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.Sender)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetHeader("List-Unsubscribe", fmt.Sprintf("<%s>, <%s>", email.UnsubscribeURL, email.MailtoURL))
	msg.SetHeader("List-Unsubscribe-Post", "List-Unsubscribe=One-Click")

	if email.RefID != "" {
		msg.SetHeader("X-Entity-Ref-ID", email.RefID)
	}

	msg.SetBody("text/plain", email.TextBody)
	msg.AddAlternative("text/html", email.HTMLBody)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	return dialer.DialAndSend(msg)
}
