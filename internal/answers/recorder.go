package answers

import (
	"context"
	"fmt"
	"time"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/metrics"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

const dayKeyLayout = "2006-01-02"

// QuestionSource resolves question ids and the deterministic daily sets.
type QuestionSource interface {
	GetQuestions(ctx context.Context, ids []string) ([]models.Question, error)
	SelectDailyQuestions(ctx context.Context, dayKey string) ([]models.Question, error)
}

type Recorder struct {
	store     *Store
	questions QuestionSource
	now       func() time.Time
	log       *zap.Logger
}

func NewRecorder(store *Store, questions QuestionSource, log *zap.Logger) *Recorder {
	return &Recorder{
		store:     store,
		questions: questions,
		now:       time.Now,
		log:       log.Named("answers"),
	}
}

// SetClock replaces the recorder clock.
func (r *Recorder) SetClock(now func() time.Time) { r.now = now }

// clientTimestamp converts a client-supplied epoch (seconds or milliseconds)
// to milliseconds. Zero means absent.
func clientTimestamp(ts float64) *int64 {
	if ts <= 0 {
		return nil
	}
	ms := int64(ts)
	if ms < 1e12 {
		ms *= 1000
	}
	return &ms
}

func (r *Recorder) write(ctx context.Context, a models.Answer) error {
	err := database.RetryOnce(ctx, func() error {
		return r.store.Upsert(ctx, a)
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.AnswersRecorded.WithLabelValues(string(a.Mode), outcome).Inc()
	return err
}

// RecordAnswer stores the user's answer to one question. Resubmitting
// replaces the previous answer.
func (r *Recorder) RecordAnswer(ctx context.Context, userID, questionID string, answer bool, timestamp float64) (*models.AnswerAck, error) {
	if userID == "" {
		return nil, apperr.Invalid("user_id", "required")
	}
	if questionID == "" {
		return nil, apperr.Invalid("question_id", "required")
	}

	found, err := r.questions.GetQuestions(ctx, []string{questionID})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("question %s: %w", questionID, apperr.ErrNotFound)
	}

	a := models.Answer{
		UserID:          userID,
		QuestionID:      questionID,
		Answer:          answer,
		IsCorrect:       answer == found[0].CorrectAnswer,
		AnsweredAt:      r.now().Unix(),
		ClientTimestamp: clientTimestamp(timestamp),
		Mode:            models.ModeStandard,
	}
	if err := r.write(ctx, a); err != nil {
		return nil, err
	}
	return &models.AnswerAck{QuestionID: questionID, IsCorrect: a.IsCorrect, AnsweredAt: a.AnsweredAt}, nil
}

// RecordBatch records each item independently. Items that fail are listed in
// a *apperr.PartialFailure; the rest are stored.
func (r *Recorder) RecordBatch(ctx context.Context, userID string, items []models.AnswerItem) (*models.BatchResult, error) {
	return r.recordBatch(ctx, userID, items, models.ModeStandard, "")
}

func (r *Recorder) recordBatch(ctx context.Context, userID string, items []models.AnswerItem, mode models.AnswerMode, dayKey string) (*models.BatchResult, error) {
	if userID == "" {
		return nil, apperr.Invalid("user_id", "required")
	}
	if len(items) == 0 {
		return nil, apperr.Invalid("answers", "at least one answer is required")
	}
	for i, it := range items {
		if it.QuestionID == "" {
			return nil, apperr.Invalid(fmt.Sprintf("answers[%d].question_id", i), "required")
		}
		if it.Answer == nil {
			return nil, apperr.Invalid(fmt.Sprintf("answers[%d].answer", i), "must be true or false")
		}
		if it.UserID != "" && it.UserID != userID {
			return nil, apperr.Invalid(fmt.Sprintf("answers[%d].user_id", i), "does not match X-User-ID")
		}
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.QuestionID
	}
	found, err := r.questions.GetQuestions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}

	now := r.now().Unix()
	result := &models.BatchResult{Recorded: []models.AnswerAck{}}
	var failures []apperr.ItemFailure
	for i, it := range items {
		q, ok := byID[it.QuestionID]
		if !ok {
			failures = append(failures, apperr.ItemFailure{Index: i, QuestionID: it.QuestionID, Reason: "question not found"})
			continue
		}
		a := models.Answer{
			UserID:          userID,
			QuestionID:      it.QuestionID,
			Answer:          *it.Answer,
			IsCorrect:       *it.Answer == q.CorrectAnswer,
			AnsweredAt:      now,
			ClientTimestamp: clientTimestamp(it.Timestamp),
			Mode:            mode,
			DayKey:          dayKey,
		}
		if err := r.write(ctx, a); err != nil {
			r.log.Warn("answer write failed", zap.String("question_id", it.QuestionID), zap.Error(err))
			failures = append(failures, apperr.ItemFailure{Index: i, QuestionID: it.QuestionID, Reason: "storage unavailable"})
			continue
		}
		result.Recorded = append(result.Recorded, models.AnswerAck{
			QuestionID: a.QuestionID,
			IsCorrect:  a.IsCorrect,
			AnsweredAt: a.AnsweredAt,
		})
	}

	if len(failures) > 0 {
		return result, &apperr.PartialFailure{Items: failures}
	}
	return result, nil
}

func (r *Recorder) HasAnswered(ctx context.Context, userID, questionID string) (bool, error) {
	return r.store.Exists(ctx, userID, questionID)
}

func (r *Recorder) AnsweredQuestionIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	return r.store.AnsweredQuestionIDs(ctx, userID)
}

// ── Daily mode ──────────────────────────────────────────

// SubmitDaily records answers for the day's set and scores the completed
// day. A day can be completed once; later submissions return ErrConflict.
func (r *Recorder) SubmitDaily(ctx context.Context, userID, dayKey string, items []models.AnswerItem) (*models.DailyOutcome, error) {
	now := r.now().UTC()
	today := now.Format(dayKeyLayout)
	if dayKey == "" {
		dayKey = today
	}
	if _, err := time.Parse(dayKeyLayout, dayKey); err != nil {
		return nil, apperr.Invalid("date", "must be formatted YYYY-MM-DD")
	}
	if dayKey > today {
		return nil, apperr.Invalid("date", "must not be in the future")
	}
	if len(items) == 0 {
		return nil, apperr.Invalid("answers", "at least one answer is required")
	}

	existing, err := r.store.GetDailyResult(ctx, userID, dayKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("daily set %s already completed: %w", dayKey, apperr.ErrConflict)
	}

	set, err := r.questions.SelectDailyQuestions(ctx, dayKey)
	if err != nil {
		return nil, err
	}
	inSet := make(map[string]bool, len(set))
	for _, q := range set {
		inSet[q.ID] = true
	}

	// Keep the last answer per question.
	latest := make(map[string]int, len(items))
	var unique []models.AnswerItem
	for _, it := range items {
		if it.QuestionID != "" && !inSet[it.QuestionID] {
			return nil, apperr.Invalid("answers", fmt.Sprintf("question %s is not part of the %s daily set", it.QuestionID, dayKey))
		}
		if idx, ok := latest[it.QuestionID]; ok {
			unique[idx] = it
			continue
		}
		latest[it.QuestionID] = len(unique)
		unique = append(unique, it)
	}

	batch, err := r.recordBatch(ctx, userID, unique, models.ModeDaily, dayKey)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, ack := range batch.Recorded {
		if ack.IsCorrect {
			correct++
		}
	}
	pct := ScorePercentage(correct, len(set))
	result := models.DailyResult{
		UserID:          userID,
		DayKey:          dayKey,
		CorrectCount:    correct,
		TotalQuestions:  len(set),
		ScorePercentage: pct,
		Rank:            Rank(pct),
		StreakEligible:  pct >= StreakThreshold,
		CompletedAt:     now.Unix(),
	}
	inserted, err := r.store.InsertDailyResult(ctx, result)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("daily set %s already completed: %w", dayKey, apperr.ErrConflict)
	}

	_, streak, err := r.DailyStatus(ctx, userID, dayKey)
	if err != nil {
		return nil, err
	}
	r.log.Info("daily set completed",
		zap.String("date", dayKey), zap.Int("correct", correct), zap.String("rank", result.Rank))

	return &models.DailyOutcome{
		Success:     true,
		ScoreData:   result,
		StreakCount: streak.CurrentStreak,
		BestStreak:  streak.BestStreak,
		Date:        dayKey,
	}, nil
}

// DailyStatus returns the user's result for dayKey (nil when not completed)
// and their streak counters as of today.
func (r *Recorder) DailyStatus(ctx context.Context, userID, dayKey string) (*models.DailyResult, models.StreakInfo, error) {
	result, err := r.store.GetDailyResult(ctx, userID, dayKey)
	if err != nil {
		return nil, models.StreakInfo{}, err
	}
	total, eligible, err := r.store.DailyHistory(ctx, userID)
	if err != nil {
		return nil, models.StreakInfo{}, err
	}
	current, best := ComputeStreaks(eligible, r.now())
	return result, models.StreakInfo{CurrentStreak: current, BestStreak: best, TotalGames: total}, nil
}

// UserStats aggregates the answer log and daily history for a profile.
func (r *Recorder) UserStats(ctx context.Context, userID string) (*models.AnswerStats, models.StreakInfo, error) {
	stats, err := r.store.Totals(ctx, userID)
	if err != nil {
		return nil, models.StreakInfo{}, err
	}
	total, eligible, err := r.store.DailyHistory(ctx, userID)
	if err != nil {
		return nil, models.StreakInfo{}, err
	}
	current, best := ComputeStreaks(eligible, r.now())
	return stats, models.StreakInfo{CurrentStreak: current, BestStreak: best, TotalGames: total}, nil
}
