package users

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

// Touch creates the user on first sight and bumps last_active otherwise.
func (s *Store) Touch(ctx context.Context, userID string, now int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, created_at, last_active) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET last_active = excluded.last_active`,
		userID, now, now,
	)
	if err != nil {
		return apperr.Storage("touch user", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, created_at, last_active FROM users WHERE user_id = ?`, userID,
	).Scan(&u.UserID, &u.CreatedAt, &u.LastActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Storage("get user", err)
	}
	return &u, nil
}
