package answers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/httpx"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

// ProfileCache drops cached profile data after a user's answers change.
type ProfileCache interface {
	Invalidate(ctx context.Context, userID string)
}

type Handler struct {
	recorder *Recorder
	profiles ProfileCache
	log      *zap.Logger
}

func NewHandler(recorder *Recorder, profiles ProfileCache, log *zap.Logger) *Handler {
	return &Handler{recorder: recorder, profiles: profiles, log: log.Named("answers")}
}

// decodeItems accepts either a bare list of answers or {"answers": [...]}.
func decodeItems(r *http.Request) ([]models.AnswerItem, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, apperr.Invalid("body", "request body could not be read")
	}
	body = bytes.TrimSpace(body)

	var items []models.AnswerItem
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, apperr.Invalid("body", "request body must be valid JSON")
		}
		return items, nil
	}
	var wrapped struct {
		Answers []models.AnswerItem `json:"answers"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, apperr.Invalid("body", "request body must be valid JSON")
	}
	return wrapped.Answers, nil
}

// SubmitAnswers handles POST /submit-answers.
func (h *Handler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	items, err := decodeItems(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	result, err := h.recorder.RecordBatch(r.Context(), userID, items)
	var pf *apperr.PartialFailure
	if err != nil && !errors.As(err, &pf) {
		httpx.WriteError(w, h.log, err)
		return
	}
	if len(result.Recorded) > 0 && h.profiles != nil {
		h.profiles.Invalidate(r.Context(), userID)
	}

	resp := models.SubmitAnswersResponse{
		Success:  pf == nil,
		Recorded: len(result.Recorded),
		Results:  result.Recorded,
	}
	status := http.StatusOK
	if pf != nil {
		resp.Failed = pf.Items
		status = http.StatusMultiStatus
		h.log.Warn("partial answer batch", zap.Int("failed", len(pf.Items)), zap.Int("recorded", resp.Recorded))
	}
	httpx.WriteJSON(w, status, resp)
}

// SubmitDailyAnswers handles POST /submit-daily-answers.
func (h *Handler) SubmitDailyAnswers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	var req models.SubmitDailyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	outcome, err := h.recorder.SubmitDaily(r.Context(), userID, req.Date, req.Answers)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if h.profiles != nil {
		h.profiles.Invalidate(r.Context(), userID)
	}
	httpx.WriteJSON(w, http.StatusOK, outcome)
}
