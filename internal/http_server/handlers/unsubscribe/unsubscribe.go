// Package unsubscribe serves the write side of the unsubscribe endpoint. It
// honors both RFC 8058 one-click posts from mail clients and manual requests
// from the unsubscribe page, recording the opt-out either way.
package unsubscribe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	resp "unsubscribe_service/internal/lib/api/response"
	sl "unsubscribe_service/internal/lib/logger"
	"unsubscribe_service/internal/lib/mask"
	"unsubscribe_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// oneClickMarker is the exact body payload RFC 8058 mail clients submit.
const oneClickMarker = "List-Unsubscribe=One-Click"

type Response struct {
	resp.Response
	Message string `json:"message"`
	Email   string `json:"email"`
}

type TokenVerifier interface {
	Verify(tokenStr string) (string, error)
}

type RecordSaver interface {
	SaveUnsubscribe(ctx context.Context, rec models.UnsubscribeRecord) error
}

type EventPublisher interface {
	PublishUnsubscribe(ctx context.Context, event models.UnsubscribeEvent) error
}

func New(
	log *slog.Logger,
	tokens TokenVerifier,
	store RecordSaver,
	events EventPublisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.unsubscribe.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		tok := r.URL.Query().Get("token")
		if tok == "" {
			log.Warn("missing unsubscribe token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Missing token parameter"))

			return
		}

		email, err := tokens.Verify(tok)
		if err != nil {
			log.Warn("invalid unsubscribe token", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid or expired token"))

			return
		}

		body, _ := io.ReadAll(r.Body)

		source := models.SourceManual
		if strings.Contains(string(body), oneClickMarker) {
			source = models.SourceOneClick
		}

		userAgent := r.UserAgent()
		if userAgent == "" {
			userAgent = "unknown"
		}

		rec := models.UnsubscribeRecord{
			Email:          email,
			UnsubscribedAt: time.Now().UTC(),
			Source:         source,
			UserAgent:      userAgent,
		}

		if err := store.SaveUnsubscribe(r.Context(), rec); err != nil {
			log.Error("failed to save unsubscribe record", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(err.Error()))

			return
		}

		if events != nil {
			event := models.UnsubscribeEvent{
				Email:          rec.Email,
				Source:         string(rec.Source),
				UserAgent:      rec.UserAgent,
				UnsubscribedAt: rec.UnsubscribedAt,
			}
			if err := events.PublishUnsubscribe(r.Context(), event); err != nil {
				log.Error("failed to publish unsubscribe event", sl.Err(err))
			}
		}

		log.Info("unsubscribed",
			slog.String("email", mask.Email(email)),
			slog.String("source", string(source)),
		)

		// One-click clients expect a bare plain-text acknowledgement, never
		// HTML or JSON.
		if source == models.SourceOneClick {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Successfully unsubscribed",
			Email:    email,
		})
	}
}
