package middleware

import (
	"log/slog"
	"net/http"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/logger"
)

// UserIDHeader lets non-browser clients identify their device.
const UserIDHeader = "X-User-ID"

// RequestLogger stores a logger enriched with the correlation id, the device
// user id and the trace ids in the request context. Mount it after
// RequestLogging and Tracing.
//
// The device id comes from the X-User-ID header or the userId query
// parameter sent by the web client.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := r.Header.Get(UserIDHeader)
			if userID == "" {
				userID = r.URL.Query().Get("userId")
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
