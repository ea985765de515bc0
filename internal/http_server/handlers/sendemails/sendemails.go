// Package sendemails exposes the batch-send operation behind the identity
// middleware.
package sendemails

import (
	"log/slog"
	"net/http"

	resp "unsubscribe_service/internal/lib/api/response"
	sl "unsubscribe_service/internal/lib/logger"
	"unsubscribe_service/internal/sender"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Count            int      `json:"count"`
	Subject          string   `json:"subject,omitempty" validate:"omitempty,max=255"`
	AdditionalEmails []string `json:"additionalEmails,omitempty" validate:"omitempty,dive,max=320"`
}

type BatchSender interface {
	SendBatch(count int, subject string, additionalEmails []string) sender.BatchResult
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	batch BatchSender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sendemails.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		result := batch.SendBatch(req.Count, req.Subject, req.AdditionalEmails)

		log.Info("batch processed",
			slog.Int("sent", result.SentCount),
			slog.Int("errors", len(result.Errors)),
		)

		render.JSON(w, r, result)
	}
}
