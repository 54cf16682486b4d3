package questions

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/httpx"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

// DailyProgress reports a user's completion state for a daily set.
type DailyProgress interface {
	DailyStatus(ctx context.Context, userID, dayKey string) (*models.DailyResult, models.StreakInfo, error)
}

type Handler struct {
	service      *Service
	progress     DailyProgress
	defaultCount int
	maxCount     int
	log          *zap.Logger
}

func NewHandler(service *Service, progress DailyProgress, defaultCount, maxCount int, log *zap.Logger) *Handler {
	return &Handler{
		service:      service,
		progress:     progress,
		defaultCount: defaultCount,
		maxCount:     maxCount,
		log:          log.Named("questions"),
	}
}

// FetchQuestions handles GET /fetch-questions.
func (h *Handler) FetchQuestions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())
	query := r.URL.Query()

	count := clamp(intQueryParam(query, "num_questions", h.defaultCount), 1, h.maxCount)

	category := strings.TrimSpace(query.Get("category"))
	if category == "" {
		category = strings.TrimSpace(query.Get("tag"))
	}
	if category != "" {
		if normalized := NormalizeCategories([]string{category}); len(normalized) == 1 {
			category = normalized[0]
		}
	}

	difficulty := 0
	if raw := query.Get("difficulty"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, h.log, apperr.Invalid("difficulty", "must be an integer between 1 and 5"))
			return
		}
		difficulty = d
	}

	exclude := true
	if raw := query.Get("exclude_answered"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, h.log, apperr.Invalid("exclude_answered", "must be true or false"))
			return
		}
		exclude = b
	}

	questions, err := h.service.SelectQuestions(r.Context(), SelectRequest{
		UserID:          userID,
		Count:           count,
		Category:        category,
		Difficulty:      difficulty,
		ExcludeAnswered: exclude,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.FetchQuestionsResponse{
		Questions:      questions,
		Count:          len(questions),
		RequestedCount: count,
		Category:       category,
		Difficulty:     difficulty,
	})
}

// FetchDailyQuestions handles GET /fetch-daily-questions. The optional date
// parameter selects a past day; it defaults to the current UTC day.
func (h *Handler) FetchDailyQuestions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	dayKey := r.URL.Query().Get("date")
	if dayKey == "" {
		dayKey = h.service.Today()
	}
	if _, err := ParseDayKey(dayKey); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if dayKey > h.service.Today() {
		httpx.WriteError(w, h.log, apperr.Invalid("date", "must not be in the future"))
		return
	}

	questions, err := h.service.SelectDailyQuestions(r.Context(), dayKey)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	resp := models.DailyQuestionsResponse{
		Questions: questions,
		Count:     len(questions),
		Date:      dayKey,
	}
	if userID != "" && h.progress != nil {
		result, streak, err := h.progress.DailyStatus(r.Context(), userID, dayKey)
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		resp.DailyProgress = result
		resp.StreakInfo = streak
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// GetCategories handles GET /get-categories.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListCategories(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
