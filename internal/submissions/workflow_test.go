package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/database/databasetest"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/models"
	"github.com/truthbyte/backend/internal/questions"
	"github.com/truthbyte/backend/internal/screening"
	"go.uber.org/zap"
)

const (
	author      = "5d6a1a8e-2f0b-4c7e-9d55-3b2f8f1e0c11"
	otherAuthor = "0c7b9a34-1e2f-4d5c-8b6a-7f9e0d1c2b3a"
	maxText     = 20
)

type fixture struct {
	db       *database.DB
	catalog  *questions.Service
	workflow *Workflow
	clock    int64
}

func newFixture(t *testing.T, screener Screener) *fixture {
	t.Helper()
	db := databasetest.Open(t)
	qstore := questions.NewStore(db)
	catalog := questions.NewService(qstore, db, nil, 10, zap.NewNop())
	f := &fixture{db: db, catalog: catalog, clock: 1773500000}
	f.workflow = NewWorkflow(NewStore(db), qstore, catalog, db, screener, maxText, zap.NewNop())
	f.workflow.SetClock(func() time.Time {
		f.clock++
		return time.Unix(f.clock, 0)
	})
	return f
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func proposal(text string) models.Proposal {
	return models.Proposal{
		Text:          text,
		CorrectAnswer: boolPtr(true),
		Categories:    []string{" Science ", "science", "Space Travel"},
	}
}

func (f *fixture) propose(t *testing.T, authorID, text string) string {
	t.Helper()
	id, err := f.workflow.ProposeQuestion(context.Background(), authorID, proposal(text))
	require.NoError(t, err)
	return id
}

func (f *fixture) selectable(t *testing.T) []string {
	t.Helper()
	qs, err := f.catalog.SelectQuestions(context.Background(), questions.SelectRequest{Count: 100})
	require.NoError(t, err)
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func TestProposeQuestion(t *testing.T) {
	f := newFixture(t, nil)
	id := f.propose(t, author, "  Mars has two moons. ")

	sub, err := f.workflow.GetSubmission(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status)
	assert.Equal(t, author, sub.Author)
	assert.Equal(t, "Mars has two moons.", sub.Text)
	assert.Equal(t, models.DefaultDifficulty, sub.Difficulty)
	assert.Equal(t, []string{"science", "space_travel"}, sub.Categories)
	assert.Nil(t, sub.ReviewedAt)
	assert.Nil(t, sub.ApprovedQuestionID)

	assert.Empty(t, f.selectable(t), "pending submissions must not be selectable")
}

func TestProposeQuestion_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name      string
		mutate    func(p *models.Proposal)
		wantField string
	}{
		{"empty text", func(p *models.Proposal) { p.Text = "   " }, "question"},
		{"text too long", func(p *models.Proposal) { p.Text = strings.Repeat("é", maxText+1) }, "question"},
		{"missing answer", func(p *models.Proposal) { p.CorrectAnswer = nil }, "answer"},
		{"difficulty zero", func(p *models.Proposal) { p.Difficulty = intPtr(0) }, "difficulty"},
		{"difficulty high", func(p *models.Proposal) { p.Difficulty = intPtr(6) }, "difficulty"},
		{"difficulty negative", func(p *models.Proposal) { p.Difficulty = intPtr(-1) }, "difficulty"},
		{"no categories", func(p *models.Proposal) { p.Categories = nil }, "categories"},
		{"blank categories", func(p *models.Proposal) { p.Categories = []string{" ", ""} }, "categories"},
		{"category too long", func(p *models.Proposal) { p.Categories = []string{strings.Repeat("c", 65)} }, "categories[0]"},
		{"title too long", func(p *models.Proposal) { p.Title = strings.Repeat("t", 201) }, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := proposal("Valid text.")
			tt.mutate(&p)
			_, err := f.workflow.ProposeQuestion(context.Background(), author, p)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	_, err := f.workflow.ProposeQuestion(context.Background(), author, proposal(strings.Repeat("é", maxText)))
	assert.NoError(t, err, "text at the limit is accepted")

	p := proposal("Explicit difficulty.")
	p.Difficulty = intPtr(5)
	id, err := f.workflow.ProposeQuestion(context.Background(), author, p)
	require.NoError(t, err)
	sub, err := f.workflow.GetSubmission(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.Difficulty)
}

func TestApplyDecision_ApprovePublishes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.propose(t, author, "Venus spins backwards.")

	result, err := f.workflow.ApplyDecision(ctx, id, models.Decision{Action: models.ActionApprove, ReviewerID: "mod-1", Notes: "good"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.Status)
	assert.Equal(t, QuestionID(id), result.QuestionID)

	assert.Equal(t, []string{QuestionID(id)}, f.selectable(t))

	q, err := f.catalog.GetQuestion(ctx, QuestionID(id))
	require.NoError(t, err)
	assert.Equal(t, models.SourceUserSubmission, q.Source)
	assert.Equal(t, author, q.OriginalAuthor)
	assert.Equal(t, []string{"science", "space_travel"}, q.Categories)

	byCategory, err := f.catalog.SelectQuestions(ctx, questions.SelectRequest{Count: 5, Category: "space_travel"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	sub, err := f.workflow.GetSubmission(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sub.ReviewerID)
	assert.Equal(t, "mod-1", *sub.ReviewerID)
	require.NotNil(t, sub.ApprovedQuestionID)
	assert.Equal(t, QuestionID(id), *sub.ApprovedQuestionID)
}

func TestApplyDecision_RejectDoesNotPublish(t *testing.T) {
	f := newFixture(t, nil)
	id := f.propose(t, author, "The sun is cold.")

	result, err := f.workflow.ApplyDecision(context.Background(), id, models.Decision{Action: models.ActionReject, ReviewerID: "mod-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, result.Status)
	assert.Empty(t, result.QuestionID)
	assert.Empty(t, f.selectable(t))
}

func TestApplyDecision_TerminalIsUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.propose(t, author, "Ice floats on water.")

	_, err := f.workflow.ApplyDecision(ctx, id, models.Decision{Action: models.ActionApprove, ReviewerID: "mod-1"})
	require.NoError(t, err)
	before, err := f.workflow.GetSubmission(ctx, id)
	require.NoError(t, err)

	for _, action := range []models.DecisionAction{models.ActionReject, models.ActionApprove} {
		_, err = f.workflow.ApplyDecision(ctx, id, models.Decision{Action: action, ReviewerID: "mod-2", Notes: "again"})
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	}

	after, err := f.workflow.GetSubmission(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyDecision_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.propose(t, author, "Bats are blind.")

	_, err := f.workflow.ApplyDecision(ctx, "missing", models.Decision{Action: models.ActionApprove, ReviewerID: "mod-1"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	tests := []struct {
		d         models.Decision
		wantField string
	}{
		{models.Decision{Action: "escalate", ReviewerID: "mod-1"}, "action"},
		{models.Decision{Action: models.ActionApprove, ReviewerID: "  "}, "reviewer_id"},
	}
	for _, tt := range tests {
		_, err := f.workflow.ApplyDecision(ctx, id, tt.d)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tt.wantField, ve.Field)
	}

	sub, err := f.workflow.GetSubmission(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status)
}

func TestListings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.propose(t, author, "First.")
	second := f.propose(t, author, "Second.")
	third := f.propose(t, author, "Third.")
	f.propose(t, otherAuthor, "Other.")

	_, err := f.workflow.ApplyDecision(ctx, first, models.Decision{Action: models.ActionApprove, ReviewerID: "mod"})
	require.NoError(t, err)
	_, err = f.workflow.ApplyDecision(ctx, second, models.Decision{Action: models.ActionReject, ReviewerID: "mod"})
	require.NoError(t, err)

	own, err := f.workflow.ListSubmissionsByAuthor(ctx, author, "", 10)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, []string{third, second, first}, []string{own[0].ID, own[1].ID, own[2].ID})

	limited, err := f.workflow.ListSubmissionsByAuthor(ctx, author, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	approved, err := f.workflow.ListSubmissionsByAuthor(ctx, author, models.StatusApproved, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, first, approved[0].ID)

	pending, err := f.workflow.ListSubmissionsByStatus(ctx, models.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.workflow.ListSubmissionsByStatus(ctx, "archived", 10)
	assert.Error(t, err)

	summary, err := f.workflow.AuthorSummary(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.AcceptedCount)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 1, summary.RejectedCount)
	assert.InDelta(t, 1.0/3.0, summary.AcceptanceRate, 1e-9)

	empty, err := f.workflow.AuthorSummary(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.AcceptanceRate)
}

func TestScreenSubmission(t *testing.T) {
	f := newFixture(t, screening.NewScreener(screening.NewMockClient(), "mock", zap.NewNop()))
	ctx := context.Background()
	id := f.propose(t, author, "Honey never spoils.")

	verdict, err := f.workflow.ScreenSubmission(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "approve", verdict.Recommendation)
	assert.Equal(t, "mock", verdict.Model)

	sub, err := f.workflow.GetSubmission(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status, "screening is advisory")
	require.NotNil(t, sub.ScreeningRecommendation)
	assert.Equal(t, "approve", *sub.ScreeningRecommendation)

	_, err = f.workflow.ScreenSubmission(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.workflow.ApplyDecision(ctx, id, models.Decision{Action: models.ActionReject, ReviewerID: "mod"})
	require.NoError(t, err)
	_, err = f.workflow.ScreenSubmission(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	disabled := newFixture(t, nil)
	_, err = disabled.workflow.ScreenSubmission(ctx, id)
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReconcile_MaterializesMissingQuestion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.propose(t, author, "Sharks are fish.")
	_, err := f.workflow.ApplyDecision(ctx, id, models.Decision{Action: models.ActionApprove, ReviewerID: "mod"})
	require.NoError(t, err)

	_, err = f.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, QuestionID(id))
	require.NoError(t, err)
	_, err = f.db.ExecContext(ctx, `DELETE FROM question_category_links WHERE question_id = ?`, QuestionID(id))
	require.NoError(t, err)
	assert.Empty(t, f.selectable(t))

	report, err := f.workflow.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.QuestionsMaterialized)
	assert.Equal(t, []string{QuestionID(id)}, f.selectable(t))

	report, err = f.workflow.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.QuestionsMaterialized)
}

// ── Handlers ────────────────────────────────────────────

func do(t *testing.T, h http.HandlerFunc, method, target string, body interface{}, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req = req.WithContext(middleware.WithUserID(req.Context(), author))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandlers(t *testing.T) {
	f := newFixture(t, nil)
	h := NewHandler(f.workflow, 20, zap.NewNop())

	rec := do(t, h.ProposeQuestion, http.MethodPost, "/propose-question", map[string]interface{}{
		"question":   "Owls can turn heads.",
		"answer":     true,
		"difficulty": 2,
		"categories": []string{"animals"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var proposed models.ProposeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proposed))
	assert.NotEmpty(t, proposed.SubmissionID)

	rec = do(t, h.ProposeQuestion, http.MethodPost, "/propose-question", map[string]interface{}{
		"question": "No answer.", "categories": []string{"animals"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "answer", errResp.Field)

	rec = do(t, h.ListOwn, http.MethodGet, "/submissions?limit=500", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.SubmissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	require.NotNil(t, list.Summary)
	assert.Equal(t, 1, list.Summary.PendingCount)

	rec = do(t, h.ListOwn, http.MethodGet, "/submissions?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	vars := map[string]string{"id": proposed.SubmissionID}
	rec = do(t, h.Decide, http.MethodPost, "/admin/submissions/x/decision",
		models.Decision{Action: models.ActionApprove, ReviewerID: "mod"}, vars)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h.Decide, http.MethodPost, "/admin/submissions/x/decision",
		models.Decision{Action: models.ActionReject, ReviewerID: "mod"}, vars)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h.Get, http.MethodGet, "/admin/submissions/x", nil, map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h.ListByStatus, http.MethodGet, "/admin/submissions?status=approved", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = models.SubmissionsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = do(t, h.Reconcile, http.MethodPost, "/admin/reconcile", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
