// Package httpx holds the response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto its status and a client-safe body. Server-side
// failures are logged; their detail is not returned.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.Status(err)
	resp := models.ErrorResponse{Error: err.Error()}

	var ve *apperr.ValidationError
	var ae *apperr.AuthError
	switch {
	case errors.As(err, &ve):
		resp.Field = ve.Field
		resp.Error = ve.Error()
	case errors.As(err, &ae):
		resp.Error = "unauthorized: " + ae.Kind.String()
	case status == http.StatusGatewayTimeout:
		resp.Error = "request timed out"
	case status == http.StatusServiceUnavailable:
		resp.Error = "storage unavailable, retry later"
	case status >= http.StatusInternalServerError:
		resp.Error = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("body", "request body must be valid JSON")
	}
	return nil
}

// ClientIP returns the caller's address. Forwarding headers are honoured only
// behind a trusted proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
