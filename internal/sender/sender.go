// Package sender composes and dispatches test email batches carrying
// unsubscribe affordances in both the body and the transport headers.
package sender

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"unsubscribe_service/internal/config"
	sl "unsubscribe_service/internal/lib/logger"
	"unsubscribe_service/internal/models"

	"github.com/google/uuid"
)

const (
	maxBatchSize    = 50
	addressPrefix   = "uns"
	localPartLength = 8
	localPartChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

type TokenIssuer interface {
	Issue(email string) (string, error)
}

type EmailSender interface {
	Send(email models.OutboundEmail) error
}

type Sender struct {
	log        *slog.Logger
	tokens     TokenIssuer
	mail       EmailSender
	senderAddr string
	cfg        config.Sender
}

// BatchResult reports a batch send. Success is true only when no recipient
// failed; partial failure is expected and carried in Errors.
type BatchResult struct {
	Success   bool     `json:"success"`
	SentCount int      `json:"sentCount"`
	Emails    []string `json:"emails"`
	Errors    []string `json:"errors"`
}

func New(
	log *slog.Logger,
	tokens TokenIssuer,
	mail EmailSender,
	senderAddr string,
	cfg config.Sender,
) *Sender {
	return &Sender{
		log:        log,
		tokens:     tokens,
		mail:       mail,
		senderAddr: senderAddr,
		cfg:        cfg,
	}
}

// SendBatch synthesizes count recipient addresses, unions the caller-supplied
// ones, and dispatches one message per recipient, sequentially. A started
// batch runs to completion; per-recipient failures are collected, not fatal.
func (s *Sender) SendBatch(count int, subject string, additionalEmails []string) BatchResult {
	const op = "sender.SendBatch"

	log := s.log.With(
		slog.String("op", op),
		slog.String("batch_id", uuid.NewString()),
	)

	if count > maxBatchSize {
		count = maxBatchSize
	}
	if count < 0 {
		count = 0
	}

	if subject == "" {
		subject = s.cfg.DefaultSubject
	}

	recipients := make([]string, 0, count+len(additionalEmails))

	for i := 0; i < count; i++ {
		recipients = append(recipients, s.randomAddress())
	}

	for _, addr := range additionalEmails {
		addr = strings.TrimSpace(addr)
		if !strings.Contains(addr, "@") {
			continue
		}
		recipients = append(recipients, addr)
	}

	sent := make([]string, 0, len(recipients))
	sendErrors := make([]string, 0)

	for _, to := range recipients {
		tok, err := s.tokens.Issue(to)
		if err != nil {
			log.Error("failed to issue token", slog.String("to", to), sl.Err(err))
			sendErrors = append(sendErrors, fmt.Sprintf("Failed to send to %s: %s", to, err.Error()))
			continue
		}

		if err := s.mail.Send(s.compose(to, subject, tok)); err != nil {
			log.Error("failed to send email", slog.String("to", to), sl.Err(err))
			sendErrors = append(sendErrors, fmt.Sprintf("Failed to send to %s: %s", to, err.Error()))
			continue
		}

		log.Info("email sent", slog.String("to", to))
		sent = append(sent, to)
	}

	return BatchResult{
		Success:   len(sendErrors) == 0,
		SentCount: len(sent),
		Emails:    sent,
		Errors:    sendErrors,
	}
}

func (s *Sender) randomAddress() string {
	local := make([]byte, localPartLength)
	for i := range local {
		local[i] = localPartChars[rand.Intn(len(localPartChars))]
	}

	domain := s.cfg.Domains[rand.Intn(len(s.cfg.Domains))]

	return fmt.Sprintf("%s%s@%s", addressPrefix, local, domain)
}

func (s *Sender) compose(to, subject, tok string) models.OutboundEmail {
	unsubscribeURL := fmt.Sprintf("https://%s/unsubscribe?token=%s", s.cfg.APIDomain, tok)
	webUnsubscribeURL := fmt.Sprintf("https://%s/unsubscribe?token=%s", s.cfg.WebDomain, tok)
	mailtoURL := fmt.Sprintf(
		"mailto:unsubscribe@%s?subject=unsubscribe&body=token:%s",
		senderDomain(s.senderAddr), tok,
	)

	return models.OutboundEmail{
		To:             to,
		Subject:        subject,
		HTMLBody:       fmt.Sprintf(htmlBody, subject, to, unsubscribeURL, webUnsubscribeURL),
		TextBody:       fmt.Sprintf(textBody, to, webUnsubscribeURL),
		UnsubscribeURL: unsubscribeURL,
		MailtoURL:      mailtoURL,
		RefID:          uuid.NewString(),
	}
}

func senderDomain(addr string) string {
	if _, domain, found := strings.Cut(addr, "@"); found {
		return domain
	}
	return addr
}

const htmlBody = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1f2937;">Email Unsubscribe POC</h2>

    <p>This is a test email for the unsubscribe POC.</p>

    <p>Sent to: <strong>%s</strong></p>

    <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">

    <p style="font-size: 0.875rem; color: #6b7280;">
        You're receiving this because you opted into the Unsubscribe POC test.<br>
        <a href="%s" style="color: #2563eb;">Unsubscribe</a> or use the
        <a href="%s" style="color: #2563eb;">unsubscribe page</a>.
    </p>
</body>
</html>`

const textBody = `Email Unsubscribe POC

This is a test email for the unsubscribe POC.

Sent to: %s

---
You're receiving this because you opted into the Unsubscribe POC test.
Unsubscribe: %s
`
