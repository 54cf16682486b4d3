package models

// Question is immutable once published.
type Question struct {
	ID             string   `json:"id"`
	Text           string   `json:"question"`
	Title          string   `json:"title,omitempty"`
	Passage        string   `json:"passage,omitempty"`
	CorrectAnswer  bool     `json:"answer"`
	Difficulty     int      `json:"difficulty"`
	Categories     []string `json:"categories"`
	Source         string   `json:"source,omitempty"`
	OriginalAuthor string   `json:"original_author,omitempty"`
	CreatedAt      int64    `json:"created_at"`
}

const (
	SourceSeed           = "seed"
	SourceUserSubmission = "user_submission"

	DefaultDifficulty = 3
	MinDifficulty     = 1
	MaxDifficulty     = 5
)

type Category struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"count"`
	UpdatedAt     int64  `json:"updated_at,omitempty"`
}

type FetchQuestionsResponse struct {
	Questions      []Question `json:"questions"`
	Count          int        `json:"count"`
	RequestedCount int        `json:"requested_count"`
	Category       string     `json:"category,omitempty"`
	Difficulty     int        `json:"difficulty,omitempty"`
}

type DailyQuestionsResponse struct {
	Questions     []Question   `json:"questions"`
	Count         int          `json:"count"`
	Date          string       `json:"date"`
	DailyProgress *DailyResult `json:"daily_progress"`
	StreakInfo    StreakInfo   `json:"streak_info"`
}

type CategoriesResponse struct {
	Categories      []Category `json:"categories"`
	TotalCategories int        `json:"total_categories"`
	TotalQuestions  int        `json:"total_questions"`
}

type ReconcileReport struct {
	LinksCreated          int `json:"links_created"`
	CategoriesCreated     int `json:"categories_created"`
	CategoriesUpdated     int `json:"categories_updated"`
	QuestionsMaterialized int `json:"questions_materialized"`
}
