package answers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/models"
)

type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// ── Answer Log ──────────────────────────────────────────

// Upsert writes a in one statement. A later write for the same (user,
// question) replaces the whole row.
func (s *Store) Upsert(ctx context.Context, a models.Answer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (user_id, question_id, answer, is_correct, answered_at, client_timestamp, mode, day_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET answer = excluded.answer,
		     is_correct = excluded.is_correct,
		     answered_at = excluded.answered_at,
		     client_timestamp = excluded.client_timestamp,
		     mode = excluded.mode,
		     day_key = excluded.day_key`,
		a.UserID, a.QuestionID, a.Answer, a.IsCorrect, a.AnsweredAt, a.ClientTimestamp, string(a.Mode), a.DayKey,
	)
	if err != nil {
		return apperr.Storage("upsert answer", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID, questionID string) (*models.Answer, error) {
	var a models.Answer
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, question_id, answer, is_correct, answered_at, client_timestamp, mode, day_key
		 FROM answers WHERE user_id = ? AND question_id = ?`,
		userID, questionID,
	).Scan(&a.UserID, &a.QuestionID, &a.Answer, &a.IsCorrect, &a.AnsweredAt, &a.ClientTimestamp, &mode, &a.DayKey)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("answer %s/%s: %w", userID, questionID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("get answer", err)
	}
	a.Mode = models.AnswerMode(mode)
	return &a, nil
}

func (s *Store) Exists(ctx context.Context, userID, questionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM answers WHERE user_id = ? AND question_id = ?`, userID, questionID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage("check answer", err)
	}
	return true, nil
}

func (s *Store) AnsweredQuestionIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT question_id FROM answers WHERE user_id = ?`, userID)
	if err != nil {
		return nil, apperr.Storage("list answered", err)
	}
	defer rows.Close()

	answered := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("scan answered", err)
		}
		answered[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list answered", err)
	}
	return answered, nil
}

func (s *Store) Totals(ctx context.Context, userID string) (*models.AnswerStats, error) {
	var stats models.AnswerStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		 FROM answers WHERE user_id = ?`, userID,
	).Scan(&stats.TotalAnswered, &stats.CorrectAnswers)
	if err != nil {
		return nil, apperr.Storage("answer totals", err)
	}
	return &stats, nil
}

// ── Daily Results ───────────────────────────────────────

// InsertDailyResult records a completed day. It reports false when the user
// already completed that day.
func (s *Store) InsertDailyResult(ctx context.Context, r models.DailyResult) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_results
		 (user_id, day_key, correct_count, total_questions, score_percentage, rank_label, streak_eligible, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, day_key) DO NOTHING`,
		r.UserID, r.DayKey, r.CorrectCount, r.TotalQuestions, r.ScorePercentage, r.Rank, r.StreakEligible, r.CompletedAt,
	)
	if err != nil {
		return false, apperr.Storage("insert daily result", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("insert daily result", err)
	}
	return n == 1, nil
}

func (s *Store) GetDailyResult(ctx context.Context, userID, dayKey string) (*models.DailyResult, error) {
	var r models.DailyResult
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, day_key, correct_count, total_questions, score_percentage, rank_label, streak_eligible, completed_at
		 FROM daily_results WHERE user_id = ? AND day_key = ?`,
		userID, dayKey,
	).Scan(&r.UserID, &r.DayKey, &r.CorrectCount, &r.TotalQuestions, &r.ScorePercentage, &r.Rank, &r.StreakEligible, &r.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get daily result", err)
	}
	return &r, nil
}

// DailyHistory returns the user's completed day keys and which of them count
// toward a streak.
func (s *Store) DailyHistory(ctx context.Context, userID string) (all int, eligible []string, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day_key, streak_eligible FROM daily_results WHERE user_id = ? ORDER BY day_key`, userID)
	if err != nil {
		return 0, nil, apperr.Storage("daily history", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		var ok bool
		if err := rows.Scan(&day, &ok); err != nil {
			return 0, nil, apperr.Storage("scan daily history", err)
		}
		all++
		if ok {
			eligible = append(eligible, day)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, apperr.Storage("daily history", err)
	}
	return all, eligible, nil
}
