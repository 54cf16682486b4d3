// Package server assembles the HTTP routes.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/truthbyte/backend/internal/answers"
	"github.com/truthbyte/backend/internal/auth"
	"github.com/truthbyte/backend/internal/httpx"
	"github.com/truthbyte/backend/internal/metrics"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/questions"
	"github.com/truthbyte/backend/internal/submissions"
	"github.com/truthbyte/backend/internal/users"
	"go.uber.org/zap"
)

type Deps struct {
	Auth        *auth.Handler
	Verifier    middleware.TokenVerifier
	Users       middleware.UserEnsurer
	User        *users.Handler
	Questions   *questions.Handler
	Answers     *answers.Handler
	Submissions *submissions.Handler

	// Limiter throttles every route per client address when set.
	Limiter        *middleware.RateLimiter
	AdminKeyHash   string
	RequestTimeout time.Duration
	Log            *zap.Logger
}

func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(d.Log), middleware.Metrics, middleware.Timeout(d.RequestTimeout))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Public routes
	r.HandleFunc("/session", d.Auth.IssueSession).Methods("GET", "POST")
	r.HandleFunc("/ping", d.Auth.Ping).Methods("GET")

	// Token only
	tokenOnly := r.NewRoute().Subrouter()
	tokenOnly.Use(middleware.AuthMiddleware(d.Verifier, d.Log))
	tokenOnly.HandleFunc("/get-categories", d.Questions.GetCategories).Methods("GET")

	// Token and user
	player := r.NewRoute().Subrouter()
	player.Use(middleware.AuthMiddleware(d.Verifier, d.Log), middleware.RequireUser(d.Users, d.Log))
	player.HandleFunc("/fetch-questions", d.Questions.FetchQuestions).Methods("GET")
	player.HandleFunc("/fetch-daily-questions", d.Questions.FetchDailyQuestions).Methods("GET")
	player.HandleFunc("/submit-answers", d.Answers.SubmitAnswers).Methods("POST")
	player.HandleFunc("/submit-daily-answers", d.Answers.SubmitDailyAnswers).Methods("POST")
	player.HandleFunc("/propose-question", d.Submissions.ProposeQuestion).Methods("POST")
	player.HandleFunc("/submissions", d.Submissions.ListOwn).Methods("GET")
	player.HandleFunc("/user", d.User.GetUser).Methods("GET")

	// Moderation
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminKey(d.AdminKeyHash, d.Log))
	admin.HandleFunc("/submissions", d.Submissions.ListByStatus).Methods("GET")
	admin.HandleFunc("/submissions/{id}", d.Submissions.Get).Methods("GET")
	admin.HandleFunc("/submissions/{id}/decision", d.Submissions.Decide).Methods("POST")
	admin.HandleFunc("/submissions/{id}/screen", d.Submissions.Screen).Methods("POST")
	admin.HandleFunc("/reconcile", d.Submissions.Reconcile).Methods("POST")

	return r
}
