// Package status serves the read side of the unsubscribe endpoint: given a
// valid token, it reports whether the bound address has opted out.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "unsubscribe_service/internal/lib/api/response"
	sl "unsubscribe_service/internal/lib/logger"
	"unsubscribe_service/internal/lib/mask"
	"unsubscribe_service/internal/models"
	"unsubscribe_service/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Email          string `json:"email"`
	FullEmail      string `json:"fullEmail"` // unmasked copy, kept for POC debugging
	IsUnsubscribed bool   `json:"isUnsubscribed"`
	UnsubscribedAt string `json:"unsubscribedAt,omitempty"`
}

type TokenVerifier interface {
	Verify(tokenStr string) (string, error)
}

type RecordProvider interface {
	GetUnsubscribe(ctx context.Context, email string) (models.UnsubscribeRecord, error)
}

func New(
	log *slog.Logger,
	tokens TokenVerifier,
	store RecordProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.status.New"

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

		rec, err := store.GetUnsubscribe(r.Context(), email)
		if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
			log.Error("failed to read unsubscribe record", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(err.Error()))

			return
		}

		response := Response{
			Response:       resp.OK(),
			Email:          mask.Email(email),
			FullEmail:      email,
			IsUnsubscribed: err == nil,
		}
		if err == nil {
			response.UnsubscribedAt = rec.UnsubscribedAt.Format(time.RFC3339)
		}

		log.Info("unsubscribe status checked",
			slog.String("email", mask.Email(email)),
			slog.Bool("is_unsubscribed", response.IsUnsubscribed),
		)

		render.JSON(w, r, response)
	}
}
