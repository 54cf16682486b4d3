package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/httpx"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	manager    *Manager
	trustProxy bool
	log        *zap.Logger
}

func NewHandler(manager *Manager, trustProxy bool, log *zap.Logger) *Handler {
	return &Handler{manager: manager, trustProxy: trustProxy, log: log.Named("auth")}
}

// IssueSession handles GET /session.
func (h *Handler) IssueSession(w http.ResponseWriter, r *http.Request) {
	issued, err := h.manager.IssueToken(r.Context(), ClientContext{
		RemoteAddr: httpx.ClientIP(r, h.trustProxy),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrRateLimited) {
			w.Header().Set("Retry-After", "3600")
		}
		httpx.WriteError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.SessionResponse{
		Token:     issued.Token,
		SessionID: issued.SessionID,
		ExpiresIn: issued.ExpiresIn,
	})
}

// Ping handles GET /ping and reports whether the bearer token is still valid.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	claims, err := h.manager.VerifyToken(BearerToken(r))
	if err != nil {
		var ae *apperr.AuthError
		msg := "invalid token"
		if errors.As(err, &ae) {
			msg = ae.Kind.String()
		}
		httpx.WriteJSON(w, http.StatusUnauthorized, models.PingResponse{Valid: false, Error: msg})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.PingResponse{
		Valid: true,
		Payload: map[string]interface{}{
			"session_id": claims.SessionID,
			"iat":        claims.IssuedAt.Unix(),
			"exp":        claims.ExpiresAt.Unix(),
		},
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
