package app

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"studybuddy_backend/internal/cache"
	"studybuddy_backend/internal/config"
	"studybuddy_backend/internal/controller"
	"studybuddy_backend/internal/learning"
	"studybuddy_backend/internal/repository"
	"studybuddy_backend/internal/service"
	"studybuddy_backend/pkg/configwatcher"
	"studybuddy_backend/pkg/database"
	"studybuddy_backend/pkg/logger"
	"studybuddy_backend/pkg/monitoring"
	"studybuddy_backend/pkg/ratelimit"
	"studybuddy_backend/pkg/security"
	"studybuddy_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 配置文件位置，同时用于热更新监听
const configPath = "configs/config.yaml"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	hydration       cache.HydrationStore
	chatLimiter     ratelimit.Limiter
	ipLimiter       *security.IPLimiter
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	activity *repository.ActivityRepository
	report   *repository.ReportRepository
	skill    *repository.SkillRepository
	role     *repository.RoleRepository
}

type services struct {
	recommendation *service.RecommendationService
	report         *service.ReportService
	gap            *service.GapService
	insights       *service.InsightsService
	chat           *service.ChatService
}

type controllers struct {
	studyBuddy *controller.StudyBuddyController
	analytics  *controller.AnalyticsController
	chat       *controller.ChatController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		activity: repository.NewActivityRepository(db, a.Config.Learning.Locale),
		report:   repository.NewReportRepository(db),
		skill:    repository.NewSkillRepository(db),
		role:     repository.NewRoleRepository(db),
	}
}

// initStores 启用 redis 时共享缓存与限流计数，否则使用进程内实现
func (a *App) initStores(rdb *redis.Client) {
	cfg := a.Config
	if rdb != nil {
		a.hydration = cache.NewRedisHydrationStore(rdb, cfg.Learning.HydrationTTL())
		a.chatLimiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.ChatMaxRequests, cfg.RateLimit.ChatWindow())
		return
	}
	a.hydration = cache.NewMemoryHydrationStore(cfg.Learning.HydrationTTL(), 10*time.Minute)
	a.chatLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.ChatMaxRequests, cfg.RateLimit.ChatWindow())
}

func (a *App) initServices(repos *repositories) *services {
	cfg := a.Config
	selector := learning.NewSelector(repos.activity, rand.New(rand.NewSource(time.Now().UnixNano())))

	recommendation := service.NewRecommendationService(
		repos.activity, repos.skill, repos.report, a.hydration, selector, cfg.Learning.WeakestSkillWindow)

	s := &services{
		recommendation: recommendation,
		report:         service.NewReportService(repos.activity, repos.report, a.hydration, recommendation),
		gap:            service.NewGapService(repos.skill, repos.activity, repos.role),
		insights:       service.NewInsightsService(repos.skill, repos.report, repos.activity, repos.role),
		chat:           service.NewChatService(cfg.AI),
	}

	// 热更新：模型网关配置与聊天配额
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.chat.UpdateConfig(newCfg.AI)
	})
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.chatLimiter.SetLimit(newCfg.RateLimit.ChatMaxRequests, newCfg.RateLimit.ChatWindow())
		logger.Log.Info("Chat rate limit updated",
			zap.Int("max_requests", newCfg.RateLimit.ChatMaxRequests),
			zap.Int("window_seconds", newCfg.RateLimit.ChatWindowSeconds))
	})
	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		studyBuddy: controller.NewStudyBuddyController(s.report, s.recommendation),
		analytics:  controller.NewAnalyticsController(s.gap, s.insights),
		chat:       controller.NewChatController(s.chat),
		health:     controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine) {
	cfg := a.Config
	a.ipLimiter = security.NewIPLimiter(cfg.RateLimit.GlobalMaxRequests, time.Minute)

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.ipLimiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化日志、数据库和 redis 并组装路由，失败时直接退出
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.SeedDemo {
		if err := database.SeedDemo(db, rand.New(rand.NewSource(time.Now().UnixNano()))); err != nil {
			logger.Log.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("studybuddy-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	return app
}

// New 用已建立的连接组装应用；rdb 为 nil 时使用进程内存储
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	app.initStores(rdb)
	repos := app.initRepositories(db)
	app.services = app.initServices(repos)
	controllers := app.initControllers(app.services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == "debug" {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router)
	app.registerRoutes(router, controllers)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(configPath); err == nil {
		go func() {
			if err := configwatcher.WatchConfig(ctx, filepath.Clean(configPath), a.applyConfig); err != nil {
				logger.Log.Warn("Config hot reload disabled", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close 释放后台协程与外部连接
func (a *App) Close() {
	if a.ipLimiter != nil {
		a.ipLimiter.Close()
	}
	if a.chatLimiter != nil {
		a.chatLimiter.Close()
	}
	if a.hydration != nil {
		a.hydration.Close()
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
