package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizfaber/quizserver/config"
	"github.com/quizfaber/quizserver/database"
	"github.com/quizfaber/quizserver/internal/controller"
	"github.com/quizfaber/quizserver/internal/controller/manager"
	"github.com/quizfaber/quizserver/internal/logger"
	"github.com/quizfaber/quizserver/internal/middleware"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/quizfaber/quizserver/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Quiz Delivery and Grading API
// @version 1.0
// @description Backend for quiz delivery: accounts, session recovery, result submission and review.
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		fx.Provide(
			repository.NewPersonRepository,
			repository.NewQuizRepository,
			repository.NewSessionRepository,
			repository.NewResultRepository,
			repository.NewReportRepository,
			repository.NewWebLogRepository,
			// The dispatchers depend on the narrow store views of the
			// repositories above.
			func(r repository.SessionRepository) repository.SessionStore { return r },
			func(r repository.WebLogRepository) repository.LogStore { return r },
		),

		fx.Provide(
			service.NewLogDispatcher,
			service.NewSessionDispatcher,
			service.NewSessionService,
			service.NewAuthService,
			service.NewQuizService,
			service.NewResultSubmissionService,
			service.NewResultService,
			service.NewMailerService,
		),

		fx.Provide(
			controller.NewController,
			manager.NewResultController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(StartDispatchers),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine(cfg *config.Config, mailer service.MailerService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.MailAlert(cfg, mailer))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartDispatchers runs both write-back dispatchers for the lifetime of the
// application. Cancelling their context on stop lets in-flight batches finish
// before the process exits.
func StartDispatchers(lc fx.Lifecycle, sessions *service.SessionDispatcher, logs *service.LogDispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				sessions.Run(ctx)
				done <- struct{}{}
			}()
			go func() {
				logs.Run(ctx)
				done <- struct{}{}
			}()
			log.Info().Msg("Write-back dispatchers started")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			for i := 0; i < 2; i++ {
				select {
				case <-done:
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
			}
			return nil
		},
	})
}

func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	coreCtrl *controller.Controller,
	resultCtrl *manager.ResultController,
) {
	coreCtrl.RegisterRoutes(router)
	resultCtrl.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quiz server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Person{},
		&model.Quiz{},
		&model.QuizSession{},
		&model.QuizResult{},
		&model.QuizResultQuestion{},
		&model.QuizResultAnswer{},
		&model.QuizResultReport{},
		&model.WebLog{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
