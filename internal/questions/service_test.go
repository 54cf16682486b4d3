package questions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database/databasetest"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

type answeredSet map[string]map[string]struct{}

func (a answeredSet) AnsweredQuestionIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	return a[userID], nil
}

func newTestService(t *testing.T, answered answeredSet) *Service {
	t.Helper()
	db := databasetest.Open(t)
	return NewService(NewStore(db), db, answered, 10, zap.NewNop())
}

func publish(t *testing.T, s *Service, id string, difficulty int, createdAt int64, categories ...string) {
	t.Helper()
	_, err := s.SaveQuestion(context.Background(), models.Question{
		ID:            id,
		Text:          "Is " + id + " true?",
		CorrectAnswer: true,
		Difficulty:    difficulty,
		Categories:    categories,
		Source:        models.SourceSeed,
		CreatedAt:     createdAt,
	})
	require.NoError(t, err)
}

func ids(qs []models.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestSampleIDs(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e"}
	seq := 0
	intn := func(n int) int { seq++; return seq % n }

	tests := []struct {
		k    int
		want int
	}{
		{0, 0},
		{3, 3},
		{5, 5},
		{100, 5},
	}
	for _, tt := range tests {
		got := sampleIDs(pool, tt.k, intn)
		if len(got) != tt.want {
			t.Errorf("sampleIDs(k=%d) returned %d ids, want %d", tt.k, len(got), tt.want)
		}
		seen := map[string]bool{}
		for _, id := range got {
			if seen[id] {
				t.Errorf("sampleIDs(k=%d) returned duplicate %q", tt.k, id)
			}
			seen[id] = true
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, pool, "input must not be reordered")
}

func TestSelectQuestions_ShortPoolReturnsWhatExists(t *testing.T) {
	s := newTestService(t, nil)
	publish(t, s, "q1", 2, 0, "science")
	publish(t, s, "q2", 3, 0, "science")
	publish(t, s, "q3", 4, 0, "science", "history")
	publish(t, s, "q4", 3, 0, "sports")

	got, err := s.SelectQuestions(context.Background(), SelectRequest{Count: 100, Category: "science"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"q1", "q2", "q3"}, ids(got))

	got, err = s.SelectQuestions(context.Background(), SelectRequest{Count: 5, Category: "geography"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectQuestions_ExcludesAnswered(t *testing.T) {
	user := "5d6a1a8e-2f0b-4c7e-9d55-3b2f8f1e0c11"
	s := newTestService(t, answeredSet{user: {"q1": {}, "q2": {}}})
	publish(t, s, "q1", 3, 0, "science")
	publish(t, s, "q2", 3, 0, "science")
	publish(t, s, "q3", 3, 0, "science")

	for i := 0; i < 10; i++ {
		got, err := s.SelectQuestions(context.Background(), SelectRequest{
			UserID: user, Count: 3, Category: "science", ExcludeAnswered: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"q3"}, ids(got))
	}

	got, err := s.SelectQuestions(context.Background(), SelectRequest{
		UserID: user, Count: 3, Category: "science", ExcludeAnswered: false,
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSelectQuestions_DifficultyFilter(t *testing.T) {
	s := newTestService(t, nil)
	publish(t, s, "easy", 1, 0, "general")
	publish(t, s, "hard", 5, 0, "general")
	publish(t, s, "hard-sports", 5, 0, "sports")

	got, err := s.SelectQuestions(context.Background(), SelectRequest{Count: 10, Category: "general", Difficulty: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"hard"}, ids(got))

	got, err = s.SelectQuestions(context.Background(), SelectRequest{Count: 10, Difficulty: 5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hard", "hard-sports"}, ids(got))
}

func TestSelectQuestions_Validation(t *testing.T) {
	s := newTestService(t, nil)

	tests := []struct {
		req   SelectRequest
		field string
	}{
		{SelectRequest{Count: 0}, "num_questions"},
		{SelectRequest{Count: 5, Difficulty: 6}, "difficulty"},
		{SelectRequest{Count: 5, Difficulty: -1}, "difficulty"},
	}
	for _, tt := range tests {
		_, err := s.SelectQuestions(context.Background(), tt.req)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tt.field, ve.Field)
	}
}

func TestSelectDailyQuestions_DeterministicAcrossInstances(t *testing.T) {
	a := newTestService(t, nil)
	b := newTestService(t, nil)
	// Insert in different orders so storage order cannot leak into the result.
	for i := 0; i < 40; i++ {
		publish(t, a, fmt.Sprintf("q%02d", i), 3, 0, "general")
		publish(t, b, fmt.Sprintf("q%02d", 39-i), 3, 0, "general")
	}

	first, err := a.SelectDailyQuestions(context.Background(), "2026-03-14")
	require.NoError(t, err)
	second, err := b.SelectDailyQuestions(context.Background(), "2026-03-14")
	require.NoError(t, err)
	again, err := a.SelectDailyQuestions(context.Background(), "2026-03-14")
	require.NoError(t, err)

	assert.Len(t, first, 10)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, ids(first), ids(again))

	other, err := a.SelectDailyQuestions(context.Background(), "2026-03-15")
	require.NoError(t, err)
	assert.NotEqual(t, ids(first), ids(other))
}

func TestSelectDailyQuestions_IgnoresQuestionsPublishedThatDay(t *testing.T) {
	s := newTestService(t, nil)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	publish(t, s, "old", 3, day.Add(-time.Minute).Unix(), "general")
	before, err := s.SelectDailyQuestions(context.Background(), "2026-03-14")
	require.NoError(t, err)

	publish(t, s, "new", 3, day.Add(9*time.Hour).Unix(), "general")
	after, err := s.SelectDailyQuestions(context.Background(), "2026-03-14")
	require.NoError(t, err)

	assert.Equal(t, []string{"old"}, ids(before))
	assert.Equal(t, ids(before), ids(after))
}

func TestSelectDailyQuestions_BadDayKey(t *testing.T) {
	s := newTestService(t, nil)
	_, err := s.SelectDailyQuestions(context.Background(), "14/03/2026")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "date", ve.Field)
}

func TestDailySeed_StableForKey(t *testing.T) {
	a1, a2 := DailySeed("2026-03-14")
	b1, b2 := DailySeed("2026-03-14")
	c1, _ := DailySeed("2026-03-15")
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)
	assert.NotEqual(t, a1, c1)
}

func TestListCategories(t *testing.T) {
	s := newTestService(t, nil)
	publish(t, s, "q1", 3, 0, "science")
	publish(t, s, "q2", 3, 0, "science", "world_history")

	resp, err := s.ListCategories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalCategories)
	assert.Equal(t, 2, resp.TotalQuestions)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "science", resp.Categories[0].Name)
	assert.Equal(t, 2, resp.Categories[0].QuestionCount)
	assert.Equal(t, "Science and nature", resp.Categories[0].Description)
	assert.Equal(t, "World History", resp.Categories[1].DisplayName)
	assert.Equal(t, 1, resp.Categories[1].QuestionCount)
}

func TestReconcile_RestoresMissingLinks(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	publish(t, s, "q1", 3, 0, "science", "history")

	_, err := s.db.ExecContext(ctx, `DELETE FROM question_category_links WHERE category = ?`, "history")
	require.NoError(t, err)

	got, err := s.SelectQuestions(ctx, SelectRequest{Count: 5, Category: "history"})
	require.NoError(t, err)
	assert.Empty(t, got)

	report, err := s.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.LinksCreated)
	assert.Equal(t, 2, report.CategoriesUpdated)

	got, err = s.SelectQuestions(ctx, SelectRequest{Count: 5, Category: "history"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, ids(got))

	report, err = s.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileReport{}, *report)
}

func TestNormalizeCategories(t *testing.T) {
	got := NormalizeCategories([]string{" Science ", "science", "", "World  History", "SPORTS"})
	assert.Equal(t, []string{"science", "world_history", "sports"}, got)
}

type failingLookup struct{ err error }

func (f failingLookup) AnsweredQuestionIDs(context.Context, string) (map[string]struct{}, error) {
	return nil, f.err
}

func TestSelection_StorageFailures(t *testing.T) {
	expired := func() context.Context {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		t.Cleanup(cancel)
		return ctx
	}

	tests := []struct {
		name    string
		prepare func(t *testing.T) (*Service, context.Context)
		wantErr error
	}{
		{"closed database", func(t *testing.T) (*Service, context.Context) {
			db := databasetest.Open(t)
			s := NewService(NewStore(db), db, nil, 10, zap.NewNop())
			publish(t, s, "q1", 3, 0, "general")
			require.NoError(t, db.Close())
			return s, context.Background()
		}, apperr.ErrStorageUnavailable},
		{"expired deadline", func(t *testing.T) (*Service, context.Context) {
			s := newTestService(t, nil)
			publish(t, s, "q1", 3, 0, "general")
			return s, expired()
		}, apperr.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ctx := tt.prepare(t)

			got, err := s.SelectQuestions(ctx, SelectRequest{Count: 5})
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)

			got, err = s.SelectDailyQuestions(ctx, "2026-03-14")
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSelectQuestions_AnswerLookupFailure(t *testing.T) {
	db := databasetest.Open(t)
	lookupErr := apperr.Storage("list answered", fmt.Errorf("connection reset"))
	s := NewService(NewStore(db), db, failingLookup{err: lookupErr}, 10, zap.NewNop())
	publish(t, s, "q1", 3, 0, "general")

	got, err := s.SelectQuestions(context.Background(), SelectRequest{Count: 5, UserID: "u1", ExcludeAnswered: true})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}
