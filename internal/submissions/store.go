package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

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

const submissionColumns = `id, author, status, submitted_at, question_text, title, passage,
	correct_answer, difficulty, categories, reviewed_at, reviewer_id, reviewer_notes,
	approved_question_id, screening_recommendation, screening_notes`

func scanSubmission(row interface{ Scan(...interface{}) error }) (models.Submission, error) {
	var s models.Submission
	var status, categories string
	var reviewedAt sql.NullInt64
	var reviewerID, notes, questionID, recommendation, screeningNotes sql.NullString
	err := row.Scan(&s.ID, &s.Author, &status, &s.SubmittedAt, &s.Text, &s.Title, &s.Passage,
		&s.CorrectAnswer, &s.Difficulty, &categories, &reviewedAt, &reviewerID, &notes,
		&questionID, &recommendation, &screeningNotes)
	if err != nil {
		return s, err
	}
	s.Status = models.SubmissionStatus(status)
	if err := json.Unmarshal([]byte(categories), &s.Categories); err != nil {
		return s, fmt.Errorf("decode categories of %s: %w", s.ID, err)
	}
	if reviewedAt.Valid {
		s.ReviewedAt = &reviewedAt.Int64
	}
	s.ReviewerID = nullString(reviewerID)
	s.ReviewerNotes = nullString(notes)
	s.ApprovedQuestionID = nullString(questionID)
	s.ScreeningRecommendation = nullString(recommendation)
	s.ScreeningNotes = nullString(screeningNotes)
	return s, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func scanSubmissions(rows *sql.Rows) ([]models.Submission, error) {
	defer rows.Close()
	out := []models.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ── Writes ──────────────────────────────────────────────

func (s *Store) Insert(ctx context.Context, sub models.Submission) error {
	categories, err := json.Marshal(sub.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submitted_questions
		 (id, author, status, submitted_at, question_text, title, passage, correct_answer, difficulty, categories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Author, string(sub.Status), sub.SubmittedAt, sub.Text, sub.Title, sub.Passage,
		sub.CorrectAnswer, sub.Difficulty, string(categories),
	)
	if err != nil {
		return apperr.Storage("insert submission", err)
	}
	return nil
}

// Transition moves a pending submission to its terminal status. It reports
// false, without writing, when the row is missing or no longer pending.
func (s *Store) Transition(ctx context.Context, q database.Querier, id string, to models.SubmissionStatus,
	reviewerID, notes string, reviewedAt int64, questionID *string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE submitted_questions
		 SET status = ?, reviewed_at = ?, reviewer_id = ?, reviewer_notes = ?, approved_question_id = ?
		 WHERE id = ? AND status = ?`,
		string(to), reviewedAt, reviewerID, notes, questionID, id, string(models.StatusPending),
	)
	if err != nil {
		return false, apperr.Storage("transition submission", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("transition submission", err)
	}
	return n == 1, nil
}

// SetScreening stores an advisory verdict. Status is left alone.
func (s *Store) SetScreening(ctx context.Context, id string, v models.ScreeningVerdict) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submitted_questions SET screening_recommendation = ?, screening_notes = ? WHERE id = ?`,
		v.Recommendation, v.Notes, id,
	)
	if err != nil {
		return apperr.Storage("set screening", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("submission %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ── Reads ───────────────────────────────────────────────

func (s *Store) Get(ctx context.Context, q database.Querier, id string) (*models.Submission, error) {
	sub, err := scanSubmission(q.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submitted_questions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("submission %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("get submission", err)
	}
	return &sub, nil
}

// ListByAuthor returns the author's submissions newest first, optionally
// restricted to one status.
func (s *Store) ListByAuthor(ctx context.Context, author string, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submitted_questions WHERE author = ?`
	args := []interface{}{author}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY submitted_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list submissions by author", err)
	}
	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, apperr.Storage("scan submissions", err)
	}
	return subs, nil
}

func (s *Store) ListByStatus(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submitted_questions
		 WHERE status = ? ORDER BY submitted_at DESC, id LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, apperr.Storage("list submissions by status", err)
	}
	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, apperr.Storage("scan submissions", err)
	}
	return subs, nil
}

// ListApprovedWithoutQuestion finds approvals whose question row is missing.
func (s *Store) ListApprovedWithoutQuestion(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixed("s.", submissionColumns)+`
		 FROM submitted_questions s
		 LEFT JOIN questions q ON q.id = s.approved_question_id
		 WHERE s.status = ? AND q.id IS NULL
		 ORDER BY s.submitted_at`,
		string(models.StatusApproved))
	if err != nil {
		return nil, apperr.Storage("list orphaned approvals", err)
	}
	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, apperr.Storage("scan submissions", err)
	}
	return subs, nil
}

// AuthorSummary counts the author's submissions per status.
func (s *Store) AuthorSummary(ctx context.Context, author string) (*models.SubmissionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM submitted_questions WHERE author = ? GROUP BY status`, author)
	if err != nil {
		return nil, apperr.Storage("summarize submissions", err)
	}
	defer rows.Close()

	summary := &models.SubmissionSummary{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperr.Storage("scan summary", err)
		}
		summary.Total += n
		switch models.SubmissionStatus(status) {
		case models.StatusApproved:
			summary.AcceptedCount = n
		case models.StatusPending:
			summary.PendingCount = n
		case models.StatusRejected:
			summary.RejectedCount = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("summarize submissions", err)
	}
	if summary.Total > 0 {
		summary.AcceptanceRate = float64(summary.AcceptedCount) / float64(summary.Total)
	}
	return summary, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
