package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reunion_archive/internal/cache"
	"reunion_archive/internal/config"
	"reunion_archive/internal/database"
	"reunion_archive/internal/handler"
	"reunion_archive/internal/logger"
	"reunion_archive/internal/model"
	"reunion_archive/internal/queue"
	"reunion_archive/internal/redis"
	"reunion_archive/internal/repository"
	"reunion_archive/internal/service"
	"reunion_archive/internal/worker"
)

const (
	shutdownTimeout = 15 * time.Second

	tokenJanitorInterval  = time.Hour
	tokenJanitorRetention = 7 * 24 * time.Hour
)

// Run wires the application and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	eventRepo := repository.NewEventRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// 3. Optional subsystems. Each one is skipped when its settings are absent.
	var (
		threadCache cache.ThreadCache
		publisher   queue.Publisher
		workers     *worker.Manager
	)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			return err
		}
		threadCache = cache.NewThreadCache(rdb.Client, cfg.ThreadCacheTTL)
		publisher = queue.NewPublisher(rdb.Client)
	} else {
		log.Warn("REDIS_URL not set; thread cache and push notifications disabled")
	}

	var store service.ObjectStore
	mediaService, err := service.NewMediaService(ctx, cfg)
	switch {
	case errors.Is(err, model.ErrStorageNotConfigured):
		log.Warn("R2 storage not configured; uploads disabled")
		mediaService = nil
	case err != nil:
		return err
	default:
		store = mediaService
	}

	if rdb != nil {
		var pusher worker.Pusher
		if cfg.PushEnabled() {
			fcm, err := service.NewFCMClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.FirebasePrivateKey)
			if err != nil {
				return err
			}
			pusher = fcm
		} else {
			log.Warn("Firebase credentials not set; push events are consumed but not sent")
		}
		eventHandler := worker.NewHandler(commentRepo, storyRepo, userRepo, tokenRepo, pusher)
		workers = worker.NewManager(queue.NewConsumer(rdb.Client), eventHandler, worker.ManagerConfig{
			WorkerCount: cfg.WorkerCount,
		})
	}

	// 4. Services and handlers
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	groupService := service.NewGroupService(groupRepo, userRepo, db, store)
	memberService := service.NewMemberService(memberRepo, userRepo)
	timelineService := service.NewTimelineService(eventRepo)
	photoService := service.NewPhotoService(photoRepo, eventRepo, groupRepo, store)
	storyService := service.NewStoryService(storyRepo, commentRepo, userRepo, db, threadCache)
	commentService := service.NewCommentService(commentRepo, storyRepo, userRepo, db, threadCache, publisher)
	notificationService := service.NewNotificationService(tokenRepo)
	adminService := service.NewAdminService(userService, commentService, statsRepo)

	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService, authService, mediaService, cfg),
		GroupHandler:        handler.NewGroupHandler(groupService),
		DirectoryHandler:    handler.NewDirectoryHandler(memberService),
		TimelineHandler:     handler.NewTimelineHandler(timelineService),
		PhotoHandler:        handler.NewPhotoHandler(photoService),
		StoryHandler:        handler.NewStoryHandler(storyService),
		CommentHandler:      handler.NewCommentHandler(commentService),
		MediaHandler:        handler.NewMediaHandler(mediaService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		AdminHandler:        handler.NewAdminHandler(adminService),
		Users:               userService,
		Groups:              groupService,
		JWTSecret:           cfg.JWTSecret,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
		Logger:              log.Named("http"),
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Run until ctx is cancelled or a component fails
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return authService.RunJanitor(gctx, tokenJanitorInterval, tokenJanitorRetention)
	})

	if workers != nil {
		g.Go(func() error {
			return workers.Run(gctx)
		})
	}

	return g.Wait()
}
