package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/metrics"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Claims is the signed payload of a session token.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type ClientContext struct {
	RemoteAddr string
}

type IssuedToken struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	ExpiresIn int64
}

type Options struct {
	Secret           []byte
	IPHashSalt       []byte
	TTL              time.Duration
	MaxSessionsPerIP int
	SessionWindow    time.Duration
	Now              func() time.Time
}

// Manager issues and verifies session tokens. Verification never touches storage.
type Manager struct {
	store  *Store
	secret []byte
	ipKey  []byte
	ttl    time.Duration
	max    int
	window time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewManager(store *Store, opts Options, log *zap.Logger) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	// blake2b keys are at most 64 bytes; hashing the salt fixes the length.
	key := sha256.Sum256(opts.IPHashSalt)
	return &Manager{
		store:  store,
		secret: opts.Secret,
		ipKey:  key[:],
		ttl:    opts.TTL,
		max:    opts.MaxSessionsPerIP,
		window: opts.SessionWindow,
		now:    now,
		log:    log.Named("auth"),
	}
}

// IssueToken creates a session for the caller and returns its signed token.
// Exactly one session row is written per successful call.
func (m *Manager) IssueToken(ctx context.Context, client ClientContext) (*IssuedToken, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	sessionID := fmt.Sprintf("session-%d-%s", now.Unix(), uuid.NewString()[:8])

	token, err := m.sign(sessionID, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	sess := models.Session{
		SessionID: sessionID,
		IPHash:    m.hashIP(client.RemoteAddr),
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	created, err := m.store.CreateSession(ctx, sess, now.Add(-m.window).Unix(), m.max)
	if err != nil {
		metrics.SessionsIssued.WithLabelValues("error").Inc()
		return nil, err
	}
	if !created {
		metrics.SessionsIssued.WithLabelValues("rate_limited").Inc()
		m.log.Warn("session rate limit reached", zap.String("ip_hash", sess.IPHash[:12]))
		return nil, apperr.ErrRateLimited
	}

	metrics.SessionsIssued.WithLabelValues("issued").Inc()
	m.log.Debug("session issued", zap.String("session_id", sessionID))
	return &IssuedToken{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(m.ttl / time.Second),
	}, nil
}

func (m *Manager) sign(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyToken checks the signature and expiry of token against the injected
// clock. Errors are *apperr.AuthError with a distinct kind per failure.
func (m *Manager) VerifyToken(token string) (*Claims, error) {
	if token == "" {
		return nil, &apperr.AuthError{Kind: apperr.AuthMalformed}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, &apperr.AuthError{Kind: apperr.AuthExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, &apperr.AuthError{Kind: apperr.AuthInvalidSignature, Err: err}
	default:
		return nil, &apperr.AuthError{Kind: apperr.AuthMalformed, Err: err}
	}

	if claims.SessionID == "" {
		return nil, &apperr.AuthError{Kind: apperr.AuthMalformed, Err: errors.New("missing session_id claim")}
	}
	return &claims, nil
}

// PurgeExpired removes sessions whose tokens can no longer verify. Rows still
// inside the rate-limit window are kept even when their token has expired.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	now := m.now()
	return m.store.PurgeExpired(ctx, now.Unix(), now.Add(-m.window).Unix())
}

func (m *Manager) hashIP(addr string) string {
	h, _ := blake2b.New256(m.ipKey)
	h.Write([]byte(addr))
	return hex.EncodeToString(h.Sum(nil))
}
