package users

import (
	"net/http"

	"github.com/truthbyte/backend/internal/httpx"
	"github.com/truthbyte/backend/internal/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log.Named("users")}
}

// GetUser handles GET /user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}
