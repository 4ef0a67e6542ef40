package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/logger"
)

// Messages used when an error carries nothing safe to show.
const (
	MessageServerError = "Server error"
)

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// Envelope builds the flat {success, message, ...data} body. Keys in data
// never override success or message.
func Envelope(success bool, message string, data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["success"] = success
	out["message"] = message
	return out
}

// WriteSuccess writes a successful envelope. Outcomes are always reported in
// the body, so the status is always 200.
func WriteSuccess(w http.ResponseWriter, message string, data map[string]any) {
	WriteJSON(w, http.StatusOK, Envelope(true, message, data))
}

// WriteFailure writes a failed envelope carrying message.
func WriteFailure(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, Envelope(false, message, nil))
}

// WriteError converts err into a failed envelope. Errors carrying a
// caller-facing message (AppError) report it; anything else is logged and
// reported as "Server error". The request-scoped logger is preferred over
// fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	msg := apperrors.Message(err, MessageServerError)
	if status := apperrors.HTTPStatus(err); status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status_class", status),
		)
	}

	WriteFailure(w, msg)
}
