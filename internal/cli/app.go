package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/truthbyte/backend/internal/answers"
	"github.com/truthbyte/backend/internal/auth"
	"github.com/truthbyte/backend/internal/config"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/logger"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/questions"
	"github.com/truthbyte/backend/internal/screening"
	"github.com/truthbyte/backend/internal/server"
	"github.com/truthbyte/backend/internal/submissions"
	"github.com/truthbyte/backend/internal/users"
	"go.uber.org/zap"
)

// App holds the wired services shared by the commands.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *database.DB
	Redis  *redis.Client

	Auth      *auth.Manager
	Questions *questions.Service
	Recorder  *answers.Recorder
	Users     *users.Service
	Workflow  *submissions.Workflow

	questionStore *questions.Store
}

func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return nil, nil, err
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// NewApp opens storage and wires every service. Construction order follows
// the read dependencies: the answer store feeds question exclusion, the
// question service feeds the recorder, the recorder feeds profiles.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Log: log, DB: db}

	app.Auth = auth.NewManager(auth.NewStore(db), auth.Options{
		Secret:           []byte(cfg.Auth.TokenSecret),
		IPHashSalt:       []byte(cfg.Auth.IPHashSalt),
		TTL:              cfg.Auth.TokenTTL,
		MaxSessionsPerIP: cfg.Auth.MaxSessionsPerIP,
		SessionWindow:    cfg.Auth.SessionWindow,
	}, log)

	answerStore := answers.NewStore(db)
	app.questionStore = questions.NewStore(db)
	app.Questions = questions.NewService(app.questionStore, db, answerStore, cfg.Questions.DailyCount, log)
	app.Recorder = answers.NewRecorder(answerStore, app.Questions, log)

	var cache users.Cache = users.NoopCache{}
	if cfg.Redis.Enabled {
		rdb, err := users.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, profile cache disabled", zap.Error(err))
		} else {
			app.Redis = rdb
			cache = users.NewRedisCache(rdb, cfg.Redis.UserCacheTTL)
		}
	}
	app.Users = users.NewService(users.NewStore(db), app.Recorder, cache, log)

	screener, err := screening.New(cfg.Screening, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	var s submissions.Screener
	if screener != nil {
		s = screener
	}
	app.Workflow = submissions.NewWorkflow(submissions.NewStore(db), app.questionStore, app.Questions, db,
		s, cfg.Submissions.MaxTextLength, log)

	return app, nil
}

// HTTPDeps collects the handlers the router mounts.
func (a *App) HTTPDeps(limiter *middleware.RateLimiter) server.Deps {
	return server.Deps{
		Auth:           auth.NewHandler(a.Auth, a.Config.Server.TrustProxy, a.Log),
		Verifier:       a.Auth,
		Users:          a.Users,
		User:           users.NewHandler(a.Users, a.Log),
		Questions:      questions.NewHandler(a.Questions, a.Recorder, a.Config.Questions.DefaultCount, a.Config.Questions.MaxCount, a.Log),
		Answers:        answers.NewHandler(a.Recorder, a.Users, a.Log),
		Submissions:    submissions.NewHandler(a.Workflow, a.Config.Submissions.ListLimit, a.Log),
		Limiter:        limiter,
		AdminKeyHash:   a.Config.Admin.KeyHash,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Log:            a.Log,
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
	a.Log.Sync()
}
