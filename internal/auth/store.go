package auth

import (
	"context"
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

// CreateSession inserts s only while fewer than max sessions share its ip_hash
// since windowStart. It reports false when the limit is reached.
func (s *Store) CreateSession(ctx context.Context, sess models.Session, windowStart int64, max int) (bool, error) {
	var created bool
	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if tx.Dialect() == database.Postgres {
			// Serialize concurrent issuers for the same address.
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext(?))`, sess.IPHash); err != nil {
				return apperr.Storage("lock ip hash", err)
			}
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (session_id, ip_hash, created_at, expires_at)
			 SELECT ?, ?, ?, ?
			 WHERE (SELECT COUNT(*) FROM sessions WHERE ip_hash = ? AND created_at >= ?) < ?`,
			sess.SessionID, sess.IPHash, sess.CreatedAt, sess.ExpiresAt,
			sess.IPHash, windowStart, max,
		)
		if err != nil {
			return apperr.Storage("insert session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.Storage("insert session", err)
		}
		created = n == 1
		return nil
	})
	return created, err
}

// PurgeExpired deletes sessions whose token expired before cutoff and that
// were created before windowStart, so rate-limit counts are unaffected.
func (s *Store) PurgeExpired(ctx context.Context, cutoff, windowStart int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ? AND created_at < ?`, cutoff, windowStart)
	if err != nil {
		return 0, apperr.Storage("purge sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
