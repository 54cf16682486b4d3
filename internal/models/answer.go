package models

type AnswerMode string

const (
	ModeStandard AnswerMode = "standard"
	ModeDaily    AnswerMode = "daily"
)

// Answer is the single row kept per (user, question); later writes replace it.
type Answer struct {
	UserID          string     `json:"user_id"`
	QuestionID      string     `json:"question_id"`
	Answer          bool       `json:"answer"`
	IsCorrect       bool       `json:"is_correct"`
	AnsweredAt      int64      `json:"answered_at"`
	ClientTimestamp *int64     `json:"client_timestamp,omitempty"`
	Mode            AnswerMode `json:"mode"`
	DayKey          string     `json:"day_key,omitempty"`
}

type AnswerItem struct {
	UserID     string  `json:"user_id,omitempty"`
	QuestionID string  `json:"question_id"`
	Answer     *bool   `json:"answer"`
	Timestamp  float64 `json:"timestamp,omitempty"`
}

type AnswerAck struct {
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
	AnsweredAt int64  `json:"answered_at"`
}

type BatchResult struct {
	Recorded []AnswerAck `json:"recorded"`
}

type SubmitAnswersResponse struct {
	Success  bool        `json:"success"`
	Recorded int         `json:"recorded"`
	Results  []AnswerAck `json:"results"`
	Failed   interface{} `json:"failed,omitempty"`
}

type SubmitDailyRequest struct {
	Answers []AnswerItem `json:"answers"`
	Date    string       `json:"date,omitempty"`
}

type DailyResult struct {
	UserID          string  `json:"-"`
	DayKey          string  `json:"date"`
	CorrectCount    int     `json:"correct_count"`
	TotalQuestions  int     `json:"total_questions"`
	ScorePercentage float64 `json:"score_percentage"`
	Rank            string  `json:"rank"`
	StreakEligible  bool    `json:"streak_eligible"`
	CompletedAt     int64   `json:"completed_at"`
}

type StreakInfo struct {
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
	TotalGames    int `json:"total_games"`
}

type DailyOutcome struct {
	Success     bool        `json:"success"`
	ScoreData   DailyResult `json:"score_data"`
	StreakCount int         `json:"streak_count"`
	BestStreak  int         `json:"best_streak"`
	Date        string      `json:"date"`
}

type AnswerStats struct {
	TotalAnswered  int `json:"total_questions_answered"`
	CorrectAnswers int `json:"correct_answers"`
}
