// Package respond holds the JSON response helpers shared by the HTTP handlers.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"reliefbridge/pkg/e"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ErrorBody struct {
	Kind    e.Kind `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind e.Kind) int {
	switch kind {
	case e.KindInvalidCoordinate, e.KindMissingField, e.KindInvalidInput:
		return http.StatusBadRequest
	case e.KindUnauthenticated:
		return http.StatusUnauthorized
	case e.KindForbidden:
		return http.StatusForbidden
	case e.KindNotFound:
		return http.StatusNotFound
	case e.KindInvalidTransition, e.KindAlreadyClaimed, e.KindStaleState:
		return http.StatusConflict
	case e.KindTimeout:
		return http.StatusGatewayTimeout
	case e.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Logger derives a per-request logger carrying chi's request id.
func Logger(base *slog.Logger, r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return base
	}
	return base.With(slog.String("request_id", reqID))
}

func JSON(w http.ResponseWriter, l *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error("json encode failed", slog.Any("error", err))
	}
}

// Error writes {"error":{"kind","message"}}. Internal failures are logged with
// the full chain and reported with a generic message.
func Error(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	kind := e.KindOf(err)
	code := StatusFor(kind)

	msg := err.Error()
	if code >= http.StatusInternalServerError {
		l.Error("handler error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		if kind == e.KindInternal {
			msg = "internal error"
		}
	} else {
		l.Info("request rejected",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
	}

	JSON(w, l, code, ErrorResponse{Error: ErrorBody{Kind: kind, Message: msg}})
}
