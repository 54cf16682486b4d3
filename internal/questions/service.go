package questions

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/metrics"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

// DayKeyLayout formats the UTC calendar date that keys a daily set.
const DayKeyLayout = "2006-01-02"

// AnswerLookup is the read side of the answer log used for exclusion.
type AnswerLookup interface {
	AnsweredQuestionIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

type SelectRequest struct {
	UserID          string
	Count           int
	Category        string
	Difficulty      int
	ExcludeAnswered bool
}

type Service struct {
	store      *Store
	db         *database.DB
	answers    AnswerLookup
	dailyCount int
	now        func() time.Time
	log        *zap.Logger
}

func NewService(store *Store, db *database.DB, answers AnswerLookup, dailyCount int, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		db:         db,
		answers:    answers,
		dailyCount: dailyCount,
		now:        time.Now,
		log:        log.Named("questions"),
	}
}

// SetClock replaces the service clock.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ── Ad hoc selection ────────────────────────────────────

// SelectQuestions samples up to req.Count questions uniformly without
// replacement. A short or empty result is not an error.
func (s *Service) SelectQuestions(ctx context.Context, req SelectRequest) ([]models.Question, error) {
	if req.Count < 1 {
		return nil, apperr.Invalid("num_questions", "must be at least 1")
	}
	if req.Difficulty != 0 && (req.Difficulty < models.MinDifficulty || req.Difficulty > models.MaxDifficulty) {
		return nil, apperr.Invalid("difficulty", "must be between 1 and 5")
	}

	ids, err := s.store.ListIDs(ctx, req.Category, req.Difficulty)
	if err != nil {
		return nil, err
	}

	if req.ExcludeAnswered && req.UserID != "" && len(ids) > 0 {
		answered, err := s.answers.AnsweredQuestionIDs(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		ids = without(ids, answered)
	}

	picked := sampleIDs(ids, req.Count, rand.IntN)
	questions, err := s.store.GetByIDs(ctx, picked)
	if err != nil {
		return nil, err
	}

	metrics.QuestionsServed.WithLabelValues("standard").Add(float64(len(questions)))
	if len(questions) < req.Count {
		s.log.Debug("short selection",
			zap.String("category", req.Category),
			zap.Int("requested", req.Count),
			zap.Int("returned", len(questions)))
	}
	return questions, nil
}

func without(ids []string, exclude map[string]struct{}) []string {
	if len(exclude) == 0 {
		return ids
	}
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := exclude[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// sampleIDs returns min(k, len(ids)) distinct ids using a partial
// Fisher-Yates shuffle driven by intn. ids is not modified.
func sampleIDs(ids []string, k int, intn func(int) int) []string {
	pool := make([]string, len(ids))
	copy(pool, ids)
	if k > len(pool) {
		k = len(pool)
	}
	for i := 0; i < k; i++ {
		j := i + intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// ── Daily set ───────────────────────────────────────────

// DailySeed derives the generator seed for dayKey.
func DailySeed(dayKey string) (uint64, uint64) {
	sum := sha256.Sum256([]byte("daily-" + dayKey))
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// ParseDayKey validates a YYYY-MM-DD key and returns the start of that UTC day.
func ParseDayKey(dayKey string) (time.Time, error) {
	day, err := time.ParseInLocation(DayKeyLayout, dayKey, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Invalid("date", "must be formatted YYYY-MM-DD")
	}
	return day, nil
}

func (s *Service) Today() string {
	return s.now().UTC().Format(DayKeyLayout)
}

// SelectDailyQuestions returns the deterministic set for dayKey. The pool is
// every question published before the start of that UTC day, so the list is
// stable for the whole day and identical on every instance.
func (s *Service) SelectDailyQuestions(ctx context.Context, dayKey string) ([]models.Question, error) {
	day, err := ParseDayKey(dayKey)
	if err != nil {
		return nil, err
	}

	ids, err := s.store.ListIDsBefore(ctx, day.Unix())
	if err != nil {
		return nil, err
	}
	// Byte order, independent of database collation.
	sort.Strings(ids)

	seed1, seed2 := DailySeed(dayKey)
	rng := rand.New(rand.NewPCG(seed1, seed2))
	picked := sampleIDs(ids, s.dailyCount, rng.IntN)

	questions, err := s.store.GetByIDs(ctx, picked)
	if err != nil {
		return nil, err
	}
	metrics.QuestionsServed.WithLabelValues("daily").Add(float64(len(questions)))
	return questions, nil
}

// ── Lookups ─────────────────────────────────────────────

func (s *Service) GetQuestions(ctx context.Context, ids []string) ([]models.Question, error) {
	return s.store.GetByIDs(ctx, ids)
}

func (s *Service) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return s.store.Get(ctx, id)
}

// ListCategories returns every category with its live question count.
func (s *Service) ListCategories(ctx context.Context) (*models.CategoriesResponse, error) {
	counts, err := s.store.LinkCounts(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := s.store.ListCategoryMeta(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountQuestions(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]models.Category, 0, len(counts))
	for name, n := range counts {
		c, ok := meta[name]
		if !ok {
			c = models.Category{Name: name, DisplayName: DisplayName(name), Description: DescriptionFor(name)}
		}
		c.QuestionCount = n
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })

	return &models.CategoriesResponse{
		Categories:      categories,
		TotalCategories: len(categories),
		TotalQuestions:  total,
	}, nil
}

// ── Maintenance ─────────────────────────────────────────

// Reconcile re-creates links missing for any question's stored categories and
// refreshes the informational per-category counts.
func (s *Service) Reconcile(ctx context.Context) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{}

	lists, err := s.store.AllCategoryLists(ctx)
	if err != nil {
		return nil, err
	}
	for _, qc := range lists {
		for _, category := range qc.Categories {
			created, err := s.store.insertLink(ctx, s.db, category, qc.ID)
			if err != nil {
				return nil, err
			}
			if created {
				report.LinksCreated++
				s.log.Info("restored category link", zap.String("category", category), zap.String("question_id", qc.ID))
			}
		}
	}

	counts, err := s.store.LinkCounts(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := s.store.ListCategoryMeta(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	for name, n := range counts {
		c, ok := meta[name]
		if !ok {
			c = models.Category{Name: name, DisplayName: DisplayName(name), Description: DescriptionFor(name)}
			report.CategoriesCreated++
		} else if c.QuestionCount == n {
			continue
		} else {
			report.CategoriesUpdated++
		}
		c.QuestionCount = n
		c.UpdatedAt = now
		if err := s.store.UpsertCategoryCount(ctx, c); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// SaveQuestion publishes q and its links in one transaction.
func (s *Service) SaveQuestion(ctx context.Context, q models.Question) (bool, error) {
	var inserted bool
	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var err error
		inserted, err = s.store.SaveQuestion(ctx, tx, q)
		return err
	})
	return inserted, err
}
