package app

import (
	"fe1_prep_backend/docs"
	"fe1_prep_backend/internal/config"
	"fe1_prep_backend/internal/middleware"
	"fe1_prep_backend/internal/model"
	"fe1_prep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	authed := router.Group("/api")
	authed.Use(middleware.AuthMiddleware(cfg))
	{
		authed.GET("/auth/profile", c.auth.Profile)

		// Catalogue
		authed.GET("/subjects", c.content.ListSubjects)
		authed.GET("/subjects/:id", c.content.GetSubject)
		authed.GET("/subjects/:id/podcasts", c.content.ListPodcasts)
		authed.GET("/subjects/:id/questions", c.content.ListQuestions)
		authed.GET("/lessons/:id", c.content.GetLesson)

		// Progress
		authed.GET("/subjects/:id/progress", c.content.GetSubjectProgress)
		authed.POST("/lessons/:id/access", c.progress.RecordLessonAccess)
		authed.POST("/lessons/:id/video-progress", c.progress.RecordVideoProgress)

		// Mock exam
		authed.POST("/simulations", c.simulation.Start)
		authed.GET("/simulations", c.simulation.History)
		authed.GET("/simulations/:id/questions/:questionId", c.simulation.GetQuestion)
		authed.POST("/simulations/:id/answers", c.simulation.SubmitAnswer)
		authed.POST("/simulations/:id/finish", c.simulation.Finish)
		authed.POST("/simulations/:id/fail", c.simulation.Fail)

		// Standalone practice
		authed.POST("/essays/practice", c.essay.SubmitPractice)
		authed.GET("/essays/practice", c.essay.ListPracticeAttempts)
	}

	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/subjects", c.admin.CreateSubject)
		admin.POST("/modules", c.admin.CreateModule)
		admin.POST("/lessons", c.admin.CreateLesson)
		admin.POST("/lessons/:id/video", c.admin.UploadLessonVideo)
		admin.POST("/questions", c.admin.CreateQuestion)
		admin.POST("/podcasts", c.admin.UploadPodcast)
	}
}
