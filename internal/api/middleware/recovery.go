package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/battleship-server/internal/api/apierr"
	"github.com/mcoot/battleship-server/internal/middleware"
)

// Recovery turns a panicking handler into a JSON 500
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// Logging logs each request with its request ID
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}
