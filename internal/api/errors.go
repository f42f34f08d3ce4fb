package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"taskbridge/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Rate-limit
// exhaustion gets its own status so callers can apply their own backoff.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := "internal"
	message := "internal server error"
	details := map[string]any{}

	var de *domain.Error
	switch {
	case errors.As(err, &de):
		kind = string(de.Kind)
		message = de.Message
		switch de.Kind {
		case domain.KindValidation:
			status = http.StatusBadRequest
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindConflict:
			status = http.StatusConflict
		case domain.KindRateLimited:
			status = http.StatusTooManyRequests
		case domain.KindResolution, domain.KindRemote:
			status = http.StatusBadGateway
		case domain.KindTimeout:
			status = http.StatusGatewayTimeout
		}
		if de.Field != "" {
			details["field"] = de.Field
		}
		if de.Entity != "" {
			details["entity"] = de.Entity
			details["entity_id"] = de.EntityID
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		kind = string(domain.KindTimeout)
		message = "request deadline exceeded"
	}

	evt := log.Ctx(r.Context()).Warn()
	if status >= 500 {
		evt = log.Ctx(r.Context()).Error()
	}
	evt.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")

	body := map[string]any{"kind": kind, "message": message}
	for k, v := range details {
		body[k] = v
	}
	writeJSON(w, status, map[string]any{"error": body})
}
