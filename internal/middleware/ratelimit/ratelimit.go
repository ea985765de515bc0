package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func Status() func(http.Handler) http.Handler {
	return limitByIP(30, time.Minute)
}

func Unsubscribe() func(http.Handler) http.Handler {
	return limitByIP(10, time.Minute)
}

func SendEmails() func(http.Handler) http.Handler {
	return limitByIP(5, time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window)
}
