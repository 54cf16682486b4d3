package submissions

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/httpx"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

const maxListLimit = 100

type Handler struct {
	workflow     *Workflow
	defaultLimit int
	log          *zap.Logger
}

func NewHandler(workflow *Workflow, defaultLimit int, log *zap.Logger) *Handler {
	return &Handler{workflow: workflow, defaultLimit: defaultLimit, log: log.Named("submissions")}
}

func (h *Handler) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("limit", "must be an integer")
	}
	if n < 1 {
		n = 1
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

// ProposeQuestion handles POST /propose-question.
func (h *Handler) ProposeQuestion(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	var p models.Proposal
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	id, err := h.workflow.ProposeQuestion(r.Context(), userID, p)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, models.ProposeResponse{
		Success:      true,
		SubmissionID: id,
		Status:       string(models.StatusPending),
	})
}

// ListOwn handles GET /submissions.
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	limit, err := h.limit(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	status := models.SubmissionStatus(r.URL.Query().Get("status"))

	subs, err := h.workflow.ListSubmissionsByAuthor(r.Context(), userID, status, limit)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	summary, err := h.workflow.AuthorSummary(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.SubmissionsResponse{
		Submissions: subs,
		Count:       len(subs),
		Summary:     summary,
	})
}

// ── Admin ───────────────────────────────────────────────

// ListByStatus handles GET /admin/submissions. Status defaults to pending.
func (h *Handler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limit(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	status := models.SubmissionStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusPending
	}

	subs, err := h.workflow.ListSubmissionsByStatus(r.Context(), status, limit)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.SubmissionsResponse{Submissions: subs, Count: len(subs)})
}

// Get handles GET /admin/submissions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.workflow.GetSubmission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}

// Decide handles POST /admin/submissions/{id}/decision.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var d models.Decision
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	result, err := h.workflow.ApplyDecision(r.Context(), mux.Vars(r)["id"], d)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// Screen handles POST /admin/submissions/{id}/screen.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.workflow.ScreenSubmission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, verdict)
}

// Reconcile handles POST /admin/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.workflow.Reconcile(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}
