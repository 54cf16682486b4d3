package models

type Session struct {
	SessionID string `json:"session_id"`
	IPHash    string `json:"-"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	ExpiresIn int64  `json:"expires_in"`
}

type PingResponse struct {
	Valid   bool        `json:"valid"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type User struct {
	UserID     string `json:"user_id"`
	CreatedAt  int64  `json:"created_at"`
	LastActive int64  `json:"last_active"`
}

type UserProfile struct {
	UserID                 string `json:"user_id"`
	TrustScore             int    `json:"trust_score"`
	CreatedAt              int64  `json:"created_at"`
	LastActive             int64  `json:"last_active"`
	TotalQuestionsAnswered int    `json:"total_questions_answered"`
	CorrectAnswers         int    `json:"correct_answers"`
	CurrentDailyStreak     int    `json:"current_daily_streak"`
	BestDailyStreak        int    `json:"best_daily_streak"`
	TotalDailyGames        int    `json:"total_daily_games"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
