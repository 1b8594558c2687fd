package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/academiaalbert/academia-backend/api/responses"
)

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://academiaalbert.com",
	"https://www.academiaalbert.com",
}

// CORS applies the browser origin policy. extra origins come from configuration.
func CORS(extra ...string) func(http.Handler) http.Handler {
	origins := append(append([]string{}, defaultCORSOrigins...), extra...)
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, responses.RequestIDHeader},
		ExposedHeaders:   []string{responses.RequestIDHeader, replayHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
