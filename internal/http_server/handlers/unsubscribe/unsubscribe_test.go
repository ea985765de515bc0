package unsubscribe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"unsubscribe_service/internal/models"

	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	email string
	err   error
}

func (s stubVerifier) Verify(string) (string, error) {
	return s.email, s.err
}

type fakeStore struct {
	recs    map[string]models.UnsubscribeRecord
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]models.UnsubscribeRecord{}}
}

func (f *fakeStore) SaveUnsubscribe(_ context.Context, rec models.UnsubscribeRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.recs[rec.Email] = rec
	return nil
}

type fakePublisher struct {
	events []models.UnsubscribeEvent
}

func (f *fakePublisher) PublishUnsubscribe(_ context.Context, event models.UnsubscribeEvent) error {
	f.events = append(f.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(handler http.HandlerFunc, target, body, userAgent string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestUnsubscribe_MissingToken(t *testing.T) {
	handler := New(testLogger(), stubVerifier{}, newFakeStore(), nil)

	rr := post(handler, "/unsubscribe", "", "")

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "Missing token parameter", body["error"])
}

func TestUnsubscribe_InvalidToken(t *testing.T) {
	handler := New(testLogger(), stubVerifier{err: errors.New("tampered")}, newFakeStore(), nil)

	rr := post(handler, "/unsubscribe?token=garbage", "", "")

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "Invalid or expired token", body["error"])
}

func TestUnsubscribe_OneClick(t *testing.T) {
	store := newFakeStore()
	handler := New(testLogger(), stubVerifier{email: "user@example.com"}, store, nil)

	rr := post(handler, "/unsubscribe?token=ok", "List-Unsubscribe=One-Click", "Thunderbird")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	require.Equal(t, "OK", rr.Body.String())

	rec := store.recs["user@example.com"]
	require.Equal(t, models.SourceOneClick, rec.Source)
	require.Equal(t, "Thunderbird", rec.UserAgent)
	require.WithinDuration(t, time.Now().UTC(), rec.UnsubscribedAt, time.Minute)
}

func TestUnsubscribe_OneClickMarkerWithinBody(t *testing.T) {
	store := newFakeStore()
	handler := New(testLogger(), stubVerifier{email: "user@example.com"}, store, nil)

	rr := post(handler, "/unsubscribe?token=ok", "foo=bar&List-Unsubscribe=One-Click", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "OK", rr.Body.String())
	require.Equal(t, models.SourceOneClick, store.recs["user@example.com"].Source)
}

func TestUnsubscribe_Manual(t *testing.T) {
	store := newFakeStore()
	handler := New(testLogger(), stubVerifier{email: "user@example.com"}, store, nil)

	rr := post(handler, "/unsubscribe?token=ok", "", "")

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, true, body["success"])
	require.Equal(t, "Successfully unsubscribed", body["message"])
	require.Equal(t, "user@example.com", body["email"])

	rec := store.recs["user@example.com"]
	require.Equal(t, models.SourceManual, rec.Source)
	require.Equal(t, "unknown", rec.UserAgent)
}

func TestUnsubscribe_IdempotentOverwrite(t *testing.T) {
	store := newFakeStore()
	handler := New(testLogger(), stubVerifier{email: "user@example.com"}, store, nil)

	rr := post(handler, "/unsubscribe?token=ok", "", "first-agent")
	require.Equal(t, http.StatusOK, rr.Code)
	first := store.recs["user@example.com"]

	rr = post(handler, "/unsubscribe?token=ok", "List-Unsubscribe=One-Click", "second-agent")
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, store.recs, 1)

	second := store.recs["user@example.com"]
	require.Equal(t, models.SourceOneClick, second.Source)
	require.Equal(t, "second-agent", second.UserAgent)
	require.False(t, second.UnsubscribedAt.Before(first.UnsubscribedAt))
}

func TestUnsubscribe_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("table missing")
	handler := New(testLogger(), stubVerifier{email: "user@example.com"}, store, nil)

	rr := post(handler, "/unsubscribe?token=ok", "", "")

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "table missing", body["error"])
}

func TestUnsubscribe_EventPublished(t *testing.T) {
	store := newFakeStore()
	events := &fakePublisher{}
	handler := New(testLogger(), stubVerifier{email: "user@example.com"}, store, events)

	rr := post(handler, "/unsubscribe?token=ok", "List-Unsubscribe=One-Click", "Thunderbird")
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, events.events, 1)
	require.Equal(t, "user@example.com", events.events[0].Email)
	require.Equal(t, "one-click", events.events[0].Source)
}
