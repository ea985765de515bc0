package storage

import (
	"context"
	"errors"

	"unsubscribe_service/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// UnsubscribeStore is the durable opt-out store, keyed by email address.
// SaveUnsubscribe is a full-record upsert; last write wins.
type UnsubscribeStore interface {
	SaveUnsubscribe(ctx context.Context, rec models.UnsubscribeRecord) error
	GetUnsubscribe(ctx context.Context, email string) (models.UnsubscribeRecord, error)
}
