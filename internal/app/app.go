package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fe1_prep_backend/internal/config"
	"fe1_prep_backend/internal/controller"
	"fe1_prep_backend/internal/repository"
	"fe1_prep_backend/internal/service"
	"fe1_prep_backend/pkg/database"
	"fe1_prep_backend/pkg/logger"
	"fe1_prep_backend/pkg/monitoring"
	"fe1_prep_backend/pkg/security"
	"fe1_prep_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

// ReloadConfig applies a hot config reload. Only the grader settings take
// effect live; server, database and storage changes need a restart.
func (a *App) ReloadConfig(newCfg *config.Config) {
	a.Config = newCfg
	if a.services != nil && a.services.grader != nil {
		a.services.grader.UpdateConfig(newCfg.Grader)
	}
	logger.Log.Info("Configuration reloaded")
}

type repositories struct {
	user       *repository.UserRepository
	subject    *repository.SubjectRepository
	lesson     *repository.LessonRepository
	podcast    *repository.PodcastRepository
	question   *repository.QuestionRepository
	progress   *repository.ProgressRepository
	simulation *repository.SimulationRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	content    *service.ContentService
	progress   *service.ProgressService
	grader     *service.GraderService
	simulation *service.SimulationService
	essay      *service.EssayService
}

type controllers struct {
	auth       *controller.AuthController
	content    *controller.ContentController
	progress   *controller.ProgressController
	simulation *controller.SimulationController
	essay      *controller.EssayController
	admin      *controller.AdminController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		subject:    repository.NewSubjectRepository(db),
		lesson:     repository.NewLessonRepository(db),
		podcast:    repository.NewPodcastRepository(db),
		question:   repository.NewQuestionRepository(db),
		progress:   repository.NewProgressRepository(db),
		simulation: repository.NewSimulationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.grader = service.NewGraderService(cfg.Grader)
	s.content = service.NewContentService(repos.subject, repos.lesson, repos.podcast, repos.question, s.storage, rdb)
	s.progress = service.NewProgressService(repos.progress, repos.lesson, repos.subject, rdb)
	s.simulation = service.NewSimulationService(repos.simulation, repos.question, s.grader, db)
	s.essay = service.NewEssayService(repos.simulation, repos.question, s.grader)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		content:    controller.NewContentController(s.content, s.progress),
		progress:   controller.NewProgressController(s.progress),
		simulation: controller.NewSimulationController(s.simulation),
		essay:      controller.NewEssayController(s.essay),
		admin:      controller.NewAdminController(s.content),
		health:     controller.NewHealthController(db),
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

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.MigrateOnly {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Log.Info("Database migration complete")
		if cfg.MigrateOnly {
			os.Exit(0)
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis is an optimization, not a dependency; the caches degrade to DB reads.
		logger.Log.Warn("Redis unavailable, running without cache", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("fe1-prep-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
