package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"unsubscribe_service/internal/models"
	"unsubscribe_service/internal/storage"

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
	recs   map[string]models.UnsubscribeRecord
	getErr error
}

func (f *fakeStore) GetUnsubscribe(_ context.Context, email string) (models.UnsubscribeRecord, error) {
	if f.getErr != nil {
		return models.UnsubscribeRecord{}, f.getErr
	}
	rec, ok := f.recs[email]
	if !ok {
		return models.UnsubscribeRecord{}, storage.ErrRecordNotFound
	}
	return rec, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestStatus_MissingToken(t *testing.T) {
	handler := New(testLogger(), stubVerifier{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe", nil)
	rr := httptest.NewRecorder()

	handler(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decode(t, rr.Body)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Missing token parameter", body["error"])
}

func TestStatus_InvalidToken(t *testing.T) {
	handler := New(testLogger(), stubVerifier{err: errors.New("bad signature")}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?token=garbage", nil)
	rr := httptest.NewRecorder()

	handler(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Invalid or expired token", decode(t, rr.Body)["error"])
}

func TestStatus_NotUnsubscribed(t *testing.T) {
	handler := New(testLogger(), stubVerifier{email: "martin@example.com"}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?token=ok", nil)
	rr := httptest.NewRecorder()

	handler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	body := decode(t, rr.Body)
	require.Equal(t, true, body["success"])
	require.Equal(t, "ma***n@example.com", body["email"])
	require.Equal(t, "martin@example.com", body["fullEmail"])
	require.Equal(t, false, body["isUnsubscribed"])
	require.NotContains(t, body, "unsubscribedAt")
}

func TestStatus_Unsubscribed(t *testing.T) {
	when := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
	store := &fakeStore{recs: map[string]models.UnsubscribeRecord{
		"martin@example.com": {
			Email:          "martin@example.com",
			UnsubscribedAt: when,
			Source:         models.SourceOneClick,
			UserAgent:      "test-agent",
		},
	}}

	handler := New(testLogger(), stubVerifier{email: "martin@example.com"}, store)

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?token=ok", nil)
	rr := httptest.NewRecorder()

	handler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	body := decode(t, rr.Body)
	require.Equal(t, true, body["isUnsubscribed"])
	require.Equal(t, when.Format(time.RFC3339), body["unsubscribedAt"])
}

func TestStatus_StoreFailure(t *testing.T) {
	store := &fakeStore{getErr: errors.New("connection refused")}
	handler := New(testLogger(), stubVerifier{email: "martin@example.com"}, store)

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?token=ok", nil)
	rr := httptest.NewRecorder()

	handler(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "connection refused", decode(t, rr.Body)["error"])
}
