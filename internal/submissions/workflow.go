// Package submissions implements the moderation workflow for user-proposed
// questions. A submission is created pending and moves once, to approved or
// rejected; approval publishes the question in the same transaction.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/metrics"
	"github.com/truthbyte/backend/internal/models"
	"github.com/truthbyte/backend/internal/questions"
	"go.uber.org/zap"
)

// questionNamespace derives published question ids from submission ids.
var questionNamespace = uuid.MustParse("8f3c2a9e-6b1d-4e57-9a0c-2d4f7b61e8a3")

// QuestionID returns the id the question published from submissionID gets.
func QuestionID(submissionID string) string {
	return uuid.NewSHA1(questionNamespace, []byte(submissionID)).String()
}

// Screener produces an advisory verdict for a submission.
type Screener interface {
	Screen(ctx context.Context, sub models.Submission) (*models.ScreeningVerdict, error)
	ModelName() string
}

type Workflow struct {
	store     *Store
	questions *questions.Store
	catalog   *questions.Service
	db        *database.DB
	screener  Screener
	validate  *validator.Validate
	maxText   int
	now       func() time.Time
	log       *zap.Logger
}

func NewWorkflow(store *Store, questionStore *questions.Store, catalog *questions.Service, db *database.DB,
	screener Screener, maxTextLength int, log *zap.Logger) *Workflow {
	return &Workflow{
		store:     store,
		questions: questionStore,
		catalog:   catalog,
		db:        db,
		screener:  screener,
		validate:  newValidator(maxTextLength),
		maxText:   maxTextLength,
		now:       time.Now,
		log:       log.Named("submissions"),
	}
}

// SetClock replaces the workflow clock.
func (w *Workflow) SetClock(now func() time.Time) { w.now = now }

func newValidator(maxTextLength int) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("textlen", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(fl.Field().String())
		return n > 0 && n <= maxTextLength
	})
	return v
}

// validationError turns the first validator failure into a ValidationError
// naming the offending field.
func validationError(err error, maxTextLength int) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperr.Invalid("body", err.Error())
	}
	fe := errs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Invalid(field, "required")
	case "textlen":
		return apperr.Invalid(field, fmt.Sprintf("must be 1 to %d characters", maxTextLength))
	case "min":
		if fe.Kind() == reflect.Slice {
			return apperr.Invalid(field, fmt.Sprintf("must contain at least %s item(s)", fe.Param()))
		}
		return apperr.Invalid(field, fmt.Sprintf("must be at least %s", fe.Param()))
	case "max":
		switch fe.Kind() {
		case reflect.Slice:
			return apperr.Invalid(field, fmt.Sprintf("must contain at most %s items", fe.Param()))
		case reflect.String:
			return apperr.Invalid(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
		}
		return apperr.Invalid(field, fmt.Sprintf("must be at most %s", fe.Param()))
	default:
		return apperr.Invalid(field, "failed "+fe.Tag()+" check")
	}
}

// ── Proposals ───────────────────────────────────────────

// ProposeQuestion validates p and stores it as a pending submission.
func (w *Workflow) ProposeQuestion(ctx context.Context, authorID string, p models.Proposal) (string, error) {
	if authorID == "" {
		return "", apperr.Invalid("user_id", "required")
	}
	p.Text = strings.TrimSpace(p.Text)
	p.Title = strings.TrimSpace(p.Title)
	p.Passage = strings.TrimSpace(p.Passage)
	p.Categories = questions.NormalizeCategories(p.Categories)
	if err := w.validate.Struct(p); err != nil {
		return "", validationError(err, w.maxText)
	}
	difficulty := models.DefaultDifficulty
	if p.Difficulty != nil {
		difficulty = *p.Difficulty
	}

	sub := models.Submission{
		ID:            uuid.NewString(),
		Author:        authorID,
		Status:        models.StatusPending,
		SubmittedAt:   w.now().Unix(),
		Text:          p.Text,
		Title:         p.Title,
		Passage:       p.Passage,
		CorrectAnswer: *p.CorrectAnswer,
		Difficulty:    difficulty,
		Categories:    p.Categories,
	}
	if err := w.store.Insert(ctx, sub); err != nil {
		return "", err
	}
	w.log.Info("question proposed", zap.String("submission_id", sub.ID), zap.Strings("categories", sub.Categories))
	return sub.ID, nil
}

func (w *Workflow) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	return w.store.Get(ctx, w.db, id)
}

func (w *Workflow) ListSubmissionsByAuthor(ctx context.Context, authorID string, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("status", "must be pending, approved or rejected")
	}
	return w.store.ListByAuthor(ctx, authorID, status, limit)
}

func (w *Workflow) ListSubmissionsByStatus(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("status", "must be pending, approved or rejected")
	}
	return w.store.ListByStatus(ctx, status, limit)
}

func (w *Workflow) AuthorSummary(ctx context.Context, authorID string) (*models.SubmissionSummary, error) {
	return w.store.AuthorSummary(ctx, authorID)
}

// ── Decisions ───────────────────────────────────────────

// ApplyDecision approves or rejects a pending submission. Approval publishes
// the question in the same transaction. A submission that is not pending is
// left untouched and ErrInvalidTransition is returned.
func (w *Workflow) ApplyDecision(ctx context.Context, submissionID string, d models.Decision) (*models.DecisionResult, error) {
	var to models.SubmissionStatus
	switch d.Action {
	case models.ActionApprove:
		to = models.StatusApproved
	case models.ActionReject:
		to = models.StatusRejected
	default:
		return nil, apperr.Invalid("action", "must be approve or reject")
	}
	d.ReviewerID = strings.TrimSpace(d.ReviewerID)
	if d.ReviewerID == "" {
		return nil, apperr.Invalid("reviewer_id", "required")
	}

	now := w.now().Unix()
	result := &models.DecisionResult{SubmissionID: submissionID, Status: to, ReviewedAt: now}

	err := database.WithTx(ctx, w.db, func(tx *database.Tx) error {
		sub, err := w.store.Get(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusPending {
			return fmt.Errorf("submission %s is %s: %w", submissionID, sub.Status, apperr.ErrInvalidTransition)
		}

		var questionID *string
		if to == models.StatusApproved {
			id := QuestionID(submissionID)
			questionID = &id
		}
		ok, err := w.store.Transition(ctx, tx, submissionID, to, d.ReviewerID, d.Notes, now, questionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("submission %s was decided concurrently: %w", submissionID, apperr.ErrInvalidTransition)
		}

		if questionID != nil {
			if _, err := w.questions.SaveQuestion(ctx, tx, publishedQuestion(*sub, *questionID, now)); err != nil {
				return err
			}
			result.QuestionID = *questionID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SubmissionsDecided.WithLabelValues(string(d.Action)).Inc()
	w.log.Info("submission decided",
		zap.String("submission_id", submissionID),
		zap.String("status", string(to)),
		zap.String("reviewer_id", d.ReviewerID))
	return result, nil
}

func publishedQuestion(sub models.Submission, id string, createdAt int64) models.Question {
	return models.Question{
		ID:             id,
		Text:           sub.Text,
		Title:          sub.Title,
		Passage:        sub.Passage,
		CorrectAnswer:  sub.CorrectAnswer,
		Difficulty:     sub.Difficulty,
		Categories:     sub.Categories,
		Source:         models.SourceUserSubmission,
		OriginalAuthor: sub.Author,
		CreatedAt:      createdAt,
	}
}

// ── Screening ───────────────────────────────────────────

// ScreenSubmission stores an advisory verdict on a pending submission.
func (w *Workflow) ScreenSubmission(ctx context.Context, submissionID string) (*models.ScreeningVerdict, error) {
	if w.screener == nil {
		return nil, apperr.Invalid("screening", "screening is disabled")
	}
	sub, err := w.store.Get(ctx, w.db, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusPending {
		return nil, fmt.Errorf("submission %s is %s: %w", submissionID, sub.Status, apperr.ErrInvalidTransition)
	}
	model := w.screener.ModelName()
	verdict, err := w.screener.Screen(ctx, *sub)
	if err != nil {
		w.log.Warn("screening failed",
			zap.String("submission_id", submissionID),
			zap.String("model", model),
			zap.Error(err))
		return nil, fmt.Errorf("screening: %w", apperr.ErrStorageUnavailable)
	}
	if err := w.store.SetScreening(ctx, submissionID, *verdict); err != nil {
		return nil, err
	}
	verdict.Model = model
	return verdict, nil
}

// ── Reconciliation ──────────────────────────────────────

// Reconcile publishes approved submissions whose question row is missing,
// then repairs the category index.
func (w *Workflow) Reconcile(ctx context.Context) (*models.ReconcileReport, error) {
	orphans, err := w.store.ListApprovedWithoutQuestion(ctx)
	if err != nil {
		return nil, err
	}

	materialized := 0
	for _, sub := range orphans {
		id := QuestionID(sub.ID)
		if sub.ApprovedQuestionID != nil && *sub.ApprovedQuestionID != "" {
			id = *sub.ApprovedQuestionID
		}
		createdAt := sub.SubmittedAt
		if sub.ReviewedAt != nil {
			createdAt = *sub.ReviewedAt
		}
		err := database.WithTx(ctx, w.db, func(tx *database.Tx) error {
			_, err := w.questions.SaveQuestion(ctx, tx, publishedQuestion(sub, id, createdAt))
			return err
		})
		if err != nil {
			return nil, err
		}
		materialized++
		w.log.Info("materialized approved submission", zap.String("submission_id", sub.ID), zap.String("question_id", id))
	}

	report, err := w.catalog.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	report.QuestionsMaterialized = materialized
	return report, nil
}
