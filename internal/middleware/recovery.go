package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicHandler writes the response for a request whose handler panicked
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// Recovery logs a panicking handler with its stack and hands the response
// to onPanic. The server keeps running.
func Recovery(logger *slog.Logger, onPanic PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					requestAttrs(r,
						slog.Any("panic", err),
						slog.String("stack", string(debug.Stack())),
					)...)
				onPanic(w, r, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
