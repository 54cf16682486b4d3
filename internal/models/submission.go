package models

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type Submission struct {
	ID                      string           `json:"id"`
	Author                  string           `json:"author"`
	Status                  SubmissionStatus `json:"status"`
	SubmittedAt             int64            `json:"submitted_at"`
	Text                    string           `json:"question"`
	Title                   string           `json:"title,omitempty"`
	Passage                 string           `json:"passage,omitempty"`
	CorrectAnswer           bool             `json:"answer"`
	Difficulty              int              `json:"difficulty"`
	Categories              []string         `json:"categories"`
	ReviewedAt              *int64           `json:"reviewed_at,omitempty"`
	ReviewerID              *string          `json:"reviewer_id,omitempty"`
	ReviewerNotes           *string          `json:"reviewer_notes,omitempty"`
	ApprovedQuestionID      *string          `json:"approved_question_id,omitempty"`
	ScreeningRecommendation *string          `json:"screening_recommendation,omitempty"`
	ScreeningNotes          *string          `json:"screening_notes,omitempty"`
}

type Proposal struct {
	Text          string   `json:"question" validate:"required,textlen"`
	Title         string   `json:"title" validate:"max=200"`
	Passage       string   `json:"passage" validate:"max=2000"`
	CorrectAnswer *bool    `json:"answer" validate:"required"`
	Difficulty    *int     `json:"difficulty" validate:"omitempty,min=1,max=5"`
	Categories    []string `json:"categories" validate:"required,min=1,max=10,dive,required,max=64"`
}

type ProposeResponse struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

type Decision struct {
	Action     DecisionAction `json:"action"`
	ReviewerID string         `json:"reviewer_id"`
	Notes      string         `json:"reviewer_notes,omitempty"`
}

type DecisionResult struct {
	SubmissionID string           `json:"submission_id"`
	Status       SubmissionStatus `json:"status"`
	QuestionID   string           `json:"question_id,omitempty"`
	ReviewedAt   int64            `json:"reviewed_at"`
}

type SubmissionSummary struct {
	Total          int     `json:"total"`
	AcceptedCount  int     `json:"accepted_count"`
	PendingCount   int     `json:"pending_count"`
	RejectedCount  int     `json:"rejected_count"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

type SubmissionsResponse struct {
	Submissions []Submission       `json:"submissions"`
	Count       int                `json:"count"`
	Summary     *SubmissionSummary `json:"summary,omitempty"`
}

type ScreeningVerdict struct {
	Recommendation string `json:"recommendation"`
	Notes          string `json:"notes"`
	Model          string `json:"model,omitempty"`
}
