package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	"github.com/duthaho/trello-clone-sub000/internal/cache"
	"github.com/duthaho/trello-clone-sub000/internal/config"
	"github.com/duthaho/trello-clone-sub000/internal/db"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/metrics"
	"github.com/duthaho/trello-clone-sub000/internal/middleware"
	"github.com/duthaho/trello-clone-sub000/internal/notify"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
	"github.com/duthaho/trello-clone-sub000/internal/service"
)

type App struct {
	cfg        config.Config
	log        *zap.SugaredLogger
	db         *pgxpool.Pool
	redis      *redis.Client
	publisher  events.Publisher
	dispatcher *notify.Dispatcher
	router     *gin.Engine
}

// services is everything the routes need, built once per App.
type services struct {
	users         *service.UserService
	projects      *service.ProjectService
	tasks         *service.TaskService
	comments      *service.CommentService
	notifications *service.NotificationService
	audit         *service.AuditService
	tokens        *auth.TokenManager
}

func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	pool, err := db.Connect(ctx, cfg.PG, log)
	if err != nil {
		return nil, err
	}
	a.db = pool

	if cfg.PG.AutoMigrate {
		if err := db.Migrate(ctx, cfg.PG.DSN); err != nil {
			pool.Close()
			return nil, err
		}
		log.Infow("migrations applied")
	}

	rdb, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.redis = rdb

	users := repo.NewPGUserRepo(pool)
	notifications := repo.NewPGNotificationRepo(pool)

	if cfg.Kafka.Enabled() {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka)
		log.Infow("publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		mailer := notify.NewSMTPMailer(cfg.SMTP, log)
		handler := notify.NewHandler(users, notifications, mailer, log)
		a.dispatcher = notify.NewDispatcher(log, cfg.Worker.Concurrency, cfg.Worker.QueueSize,
			notify.DefaultRetryPolicy(cfg.Worker.MaxRetries))
		a.dispatcher.Start(context.Background())
		a.publisher = notify.NewLocalPublisher(a.dispatcher, handler)
		log.Infow("handling events in-process", "workers", cfg.Worker.Concurrency)
	}

	svcs := a.buildServices(users, notifications)
	a.router = newRouter(cfg, log)
	a.setupRoutes(svcs)
	return a, nil
}

func (a *App) buildServices(users repo.UserRepo, notifications repo.NotificationRepo) services {
	projects := repo.NewPGProjectRepo(a.db)
	tasks := repo.NewPGTaskRepo(a.db)

	tokens := auth.NewTokenManager(a.cfg.JWT.Secret, a.cfg.JWT.Issuer,
		a.cfg.JWT.AccessTTL.Duration(), a.cfg.JWT.RefreshTTL.Duration())
	sessions := auth.NewRefreshStore(a.redis, a.cfg.JWT.RefreshTTL.Duration())
	taskCache := cache.NewTaskCache(a.redis, a.cfg.Redis.CacheTTL.Duration())
	audit := service.NewAuditService(repo.NewPGAuditRepo(a.db), projects, a.log)

	return services{
		users:         service.NewUserService(users, tokens, sessions, a.log),
		projects:      service.NewProjectService(projects, users, audit, a.publisher, taskCache, a.log),
		tasks:         service.NewTaskService(tasks, projects, taskCache, audit, a.publisher, a.log),
		comments:      service.NewCommentService(repo.NewPGCommentRepo(a.db), tasks, projects, audit, a.publisher, a.log),
		notifications: service.NewNotificationService(notifications),
		audit:         audit,
		tokens:        tokens,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close releases resources in dependency order: pending jobs first, then
// the event sink, then the stores they write to.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func newRouter(cfg config.Config, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		metrics.Middleware(),
	)

	// cors.New panics on an empty origin list.
	if len(cfg.HTTP.CORSOrigins) == 0 {
		return r
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowCredentials: cfg.HTTP.CORSAllowCredentials,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.HeaderRequestID},
		MaxAge:           12 * time.Hour,
	}))
	return r
}
