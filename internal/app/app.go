package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"study_platform_backend/internal/config"
	"study_platform_backend/internal/controller"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/service"
	"study_platform_backend/pkg/configwatcher"
	"study_platform_backend/pkg/database"
	"study_platform_backend/pkg/logger"
	"study_platform_backend/pkg/monitoring"
	"study_platform_backend/pkg/queue"
	"study_platform_backend/pkg/security"
	"study_platform_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Queue           *queue.Queue
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	profile  *repository.ProfileRepository
	text     *repository.TextRepository
	quiz     *repository.QuizRepository
	attempt  *repository.AttemptRepository
	material *repository.MaterialRepository
	tracking *repository.TrackingRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	ai          *service.AIService
	text        *service.TextService
	quiz        *service.QuizService
	material    *service.MaterialService
	recommender *service.RecommendationService
	tracking    *service.TrackingService
	analytics   *service.AnalyticsService
	user        *service.UserService
}

type controllers struct {
	auth        *controller.AuthController
	text        *controller.TextController
	teacherText *controller.TeacherTextController
	material    *controller.MaterialController
	tracking    *controller.TrackingController
	analytics   *controller.AnalyticsController
	user        *controller.UserController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		profile:  repository.NewProfileRepository(db),
		text:     repository.NewTextRepository(db),
		quiz:     repository.NewQuizRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		material: repository.NewMaterialRepository(db),
		tracking: repository.NewTrackingRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.ai = service.NewAIService(cfg.AI)
	s.auth = service.NewAuthService(repos.user, repos.profile, cfg)
	s.text = service.NewTextService(repos.text, repos.quiz, repos.attempt, s.storage)
	s.quiz = service.NewQuizService(repos.quiz, repos.attempt, repos.text, repos.profile, s.ai, a.Queue)
	s.recommender = service.NewRecommendationService(repos.material)
	s.material = service.NewMaterialService(repos.material, repos.attempt, repos.text, repos.quiz, s.ai, a.Queue, s.recommender)
	s.tracking = service.NewTrackingService(repos.tracking, repos.material, repos.profile)
	s.analytics = service.NewAnalyticsService(repos.tracking, repos.material)
	s.user = service.NewUserService(repos.user, repos.profile, repos.attempt)

	// 后台生成任务注册，队列在 startBackgroundTasks 里启动
	s.quiz.RegisterTasks()
	s.material.RegisterTasks()

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		text:        controller.NewTextController(s.text, s.quiz),
		teacherText: controller.NewTeacherTextController(s.text, s.quiz),
		material:    controller.NewMaterialController(s.material, s.recommender),
		tracking:    controller.NewTrackingController(s.tracking),
		analytics:   controller.NewAnalyticsController(s.analytics),
		user:        controller.NewUserController(s.user, s.quiz),
		health:      controller.NewHealthController(db, a.Queue),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	a.Queue.Start()

	// 超过 30 分钟无同步的会话按超时收尾
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		for range ticker.C {
			if _, err := s.tracking.CloseStaleSessions(30 * time.Minute); err != nil {
				logger.Log.Error("stale session cleanup error", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	app.Queue = queue.New(rdb, queue.Options{
		Workers:     cfg.Queue.Workers,
		MaxRetries:  cfg.Queue.MaxRetries,
		RetryBase:   time.Duration(cfg.Queue.RetryBaseS) * time.Second,
		TaskTimeout: time.Duration(cfg.Queue.TaskTimeout) * time.Second,
	})

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("study-platform", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	// 配置文件热更新
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(raw interface{}) {
		newCfg, ok := raw.(*config.Config)
		if !ok {
			return
		}
		app.Config = newCfg
		for _, cb := range app.configCallbacks {
			cb(newCfg)
		}
		logger.Log.Info("Configuration reloaded")
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 先停队列，等在途生成任务落库
	a.Queue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
