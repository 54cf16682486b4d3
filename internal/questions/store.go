package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/models"
)

// SQLite caps bound parameters per statement; batch lookups are chunked.
const maxIDsPerQuery = 500

type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const questionColumns = `id, question_text, title, passage, correct_answer, difficulty,
	categories, source, original_author, created_at`

func scanQuestion(row interface{ Scan(...interface{}) error }) (models.Question, error) {
	var q models.Question
	var categories string
	err := row.Scan(&q.ID, &q.Text, &q.Title, &q.Passage, &q.CorrectAnswer, &q.Difficulty,
		&categories, &q.Source, &q.OriginalAuthor, &q.CreatedAt)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(categories), &q.Categories); err != nil {
		return q, fmt.Errorf("decode categories of %s: %w", q.ID, err)
	}
	return q, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ── Candidate Pools ─────────────────────────────────────

// ListIDs returns the ids in category (all questions when category is empty),
// optionally restricted to one difficulty.
func (s *Store) ListIDs(ctx context.Context, category string, difficulty int) ([]string, error) {
	var rows *sql.Rows
	var err error

	switch {
	case category != "" && difficulty > 0:
		rows, err = s.db.QueryContext(ctx,
			`SELECT l.question_id FROM question_category_links l
			 JOIN questions q ON q.id = l.question_id
			 WHERE l.category = ? AND q.difficulty = ?`,
			category, difficulty)
	case category != "":
		rows, err = s.db.QueryContext(ctx,
			`SELECT l.question_id FROM question_category_links l
			 JOIN questions q ON q.id = l.question_id
			 WHERE l.category = ?`,
			category)
	case difficulty > 0:
		rows, err = s.db.QueryContext(ctx, `SELECT id FROM questions WHERE difficulty = ?`, difficulty)
	default:
		rows, err = s.db.QueryContext(ctx, `SELECT id FROM questions`)
	}
	if err != nil {
		return nil, apperr.Storage("list question ids", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, apperr.Storage("scan question ids", err)
	}
	return ids, nil
}

// ListIDsBefore returns every question published strictly before cutoff.
func (s *Store) ListIDsBefore(ctx context.Context, cutoff int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM questions WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, apperr.Storage("list published ids", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, apperr.Storage("scan published ids", err)
	}
	return ids, nil
}

// ── Lookups ─────────────────────────────────────────────

// GetByIDs returns the questions for ids in the order requested. Unknown ids
// are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}

	byID := make(map[string]models.Question, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(ids))
		chunk := ids[start:end]

		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s FROM questions WHERE id IN (%s)`, questionColumns, database.Placeholders(len(chunk))),
			args...)
		if err != nil {
			return nil, apperr.Storage("get questions", err)
		}
		for rows.Next() {
			q, err := scanQuestion(rows)
			if err != nil {
				rows.Close()
				return nil, apperr.Storage("scan question", err)
			}
			byID[q.ID] = q
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, apperr.Storage("get questions", err)
		}
	}

	out := make([]models.Question, 0, len(byID))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM questions WHERE id = ?`, questionColumns), id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("get question", err)
	}
	return &q, nil
}

func (s *Store) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, apperr.Storage("count questions", err)
	}
	return n, nil
}

// ── Writes ──────────────────────────────────────────────

// SaveQuestion writes q and one link per category through tx. Both writes are
// idempotent on their keys, so replays leave a single copy.
func (s *Store) SaveQuestion(ctx context.Context, tx database.Querier, q models.Question) (bool, error) {
	categories, err := json.Marshal(q.Categories)
	if err != nil {
		return false, fmt.Errorf("encode categories: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		q.ID, q.Text, q.Title, q.Passage, q.CorrectAnswer, q.Difficulty,
		string(categories), q.Source, q.OriginalAuthor, q.CreatedAt,
	)
	if err != nil {
		return false, apperr.Storage("insert question", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("insert question", err)
	}

	for _, category := range q.Categories {
		if _, err := s.insertLink(ctx, tx, category, q.ID); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (category_id, display_name, description, question_count, updated_at)
			 VALUES (?, ?, ?, 0, ?)
			 ON CONFLICT (category_id) DO NOTHING`,
			category, DisplayName(category), DescriptionFor(category), q.CreatedAt,
		); err != nil {
			return false, apperr.Storage("insert category", err)
		}
	}
	return inserted == 1, nil
}

func (s *Store) insertLink(ctx context.Context, q database.Querier, category, questionID string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO question_category_links (category, question_id) VALUES (?, ?)
		 ON CONFLICT (category, question_id) DO NOTHING`,
		category, questionID)
	if err != nil {
		return false, apperr.Storage("insert category link", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("insert category link", err)
	}
	return n == 1, nil
}

// ── Category Index ──────────────────────────────────────

func (s *Store) LinkCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM question_category_links GROUP BY category`)
	if err != nil {
		return nil, apperr.Storage("count links", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, apperr.Storage("scan link count", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("count links", err)
	}
	return counts, nil
}

func (s *Store) ListCategoryMeta(ctx context.Context) (map[string]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category_id, display_name, description, question_count, updated_at FROM categories`)
	if err != nil {
		return nil, apperr.Storage("list categories", err)
	}
	defer rows.Close()

	meta := make(map[string]models.Category)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Name, &c.DisplayName, &c.Description, &c.QuestionCount, &c.UpdatedAt); err != nil {
			return nil, apperr.Storage("scan category", err)
		}
		meta[c.Name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list categories", err)
	}
	return meta, nil
}

// UpsertCategoryCount stores the reconciled count, creating the metadata row
// if missing.
func (s *Store) UpsertCategoryCount(ctx context.Context, c models.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (category_id, display_name, description, question_count, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (category_id) DO UPDATE
		 SET question_count = excluded.question_count, updated_at = excluded.updated_at`,
		c.Name, c.DisplayName, c.Description, c.QuestionCount, c.UpdatedAt)
	if err != nil {
		return apperr.Storage("upsert category", err)
	}
	return nil
}

type questionCategories struct {
	ID         string
	Categories []string
}

// AllCategoryLists returns the stored category list of every question.
func (s *Store) AllCategoryLists(ctx context.Context) ([]questionCategories, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, categories FROM questions`)
	if err != nil {
		return nil, apperr.Storage("list question categories", err)
	}
	defer rows.Close()

	var out []questionCategories
	for rows.Next() {
		var qc questionCategories
		var raw string
		if err := rows.Scan(&qc.ID, &raw); err != nil {
			return nil, apperr.Storage("scan question categories", err)
		}
		if err := json.Unmarshal([]byte(raw), &qc.Categories); err != nil {
			return nil, fmt.Errorf("decode categories of %s: %w", qc.ID, err)
		}
		out = append(out, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list question categories", err)
	}
	return out, nil
}
