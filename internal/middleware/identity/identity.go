// Package identity guards operator routes with a bearer token check. Tokens
// come from the external identity provider and are verified locally against a
// shared secret with required audience and issuer.
package identity

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	resp "unsubscribe_service/internal/lib/api/response"
	sl "unsubscribe_service/internal/lib/logger"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
)

func New(log *slog.Logger, secret, audience, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.identity.New"

			log := log.With(slog.String("op", op))

			authHeader := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if authHeader == "" || !ok {
				log.Warn("missing bearer token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Missing bearer token"))

				return
			}

			claims := jwt.MapClaims{}

			parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("%s: unexpected signing method", op)
				}
				return []byte(secret), nil
			}, jwt.WithAudience(audience), jwt.WithIssuer(issuer))
			if err != nil || !parsed.Valid {
				if err != nil {
					log.Warn("invalid identity token", sl.Err(err))
				}

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid identity token"))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
