package users

import (
	"context"
	"time"

	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

// StatsSource supplies the answer totals and streaks shown on a profile.
type StatsSource interface {
	UserStats(ctx context.Context, userID string) (*models.AnswerStats, models.StreakInfo, error)
}

type Service struct {
	store *Store
	stats StatsSource
	cache Cache
	now   func() time.Time
	log   *zap.Logger
}

func NewService(store *Store, stats StatsSource, cache Cache, log *zap.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{
		store: store,
		stats: stats,
		cache: cache,
		now:   time.Now,
		log:   log.Named("users"),
	}
}

// SetClock replaces the service clock.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Ensure creates the user on first request and records activity.
func (s *Service) Ensure(ctx context.Context, userID string) error {
	return s.store.Touch(ctx, userID, s.now().Unix())
}

// Profile returns the user's profile, served from the cache when possible.
// Cache failures fall through to the database.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if cached, err := s.cache.Get(ctx, userID); err != nil {
		s.log.Warn("profile cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, streak, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		UserID:                 user.UserID,
		TrustScore:             stats.CorrectAnswers,
		CreatedAt:              user.CreatedAt,
		LastActive:             user.LastActive,
		TotalQuestionsAnswered: stats.TotalAnswered,
		CorrectAnswers:         stats.CorrectAnswers,
		CurrentDailyStreak:     streak.CurrentStreak,
		BestDailyStreak:        streak.BestStreak,
		TotalDailyGames:        streak.TotalGames,
	}
	if err := s.cache.Set(ctx, profile); err != nil {
		s.log.Warn("profile cache write failed", zap.Error(err))
	}
	return profile, nil
}

// Invalidate drops the cached profile after the user's answers change.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("profile cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
