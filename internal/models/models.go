package models

import "time"

type UnsubscribeSource string

const (
	SourceOneClick UnsubscribeSource = "one-click"
	SourceManual   UnsubscribeSource = "manual"
)

// UnsubscribeRecord is the single row kept per opted-out address. Presence of
// a record is the sole signal of opt-out status; repeated writes overwrite.
type UnsubscribeRecord struct {
	Email          string            `json:"email"`
	UnsubscribedAt time.Time         `json:"unsubscribed_at"`
	Source         UnsubscribeSource `json:"source"`
	UserAgent      string            `json:"user_agent"`
}

// OutboundEmail is a composed message ready for dispatch. It only lives for
// the duration of the send call.
type OutboundEmail struct {
	To             string
	Subject        string
	HTMLBody       string
	TextBody       string
	UnsubscribeURL string
	MailtoURL      string
	RefID          string
}

// UnsubscribeEvent is the queue payload published after a successful opt-out
// write, for downstream suppression-list consumers.
type UnsubscribeEvent struct {
	Email          string    `json:"email"`
	Source         string    `json:"source"`
	UserAgent      string    `json:"user_agent"`
	UnsubscribedAt time.Time `json:"unsubscribed_at"`
}
