package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/yungbote/medtrain-backend/internal/handlers"
  "github.com/yungbote/medtrain-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler    *handlers.AuthHandler
  AuthMiddleware *middleware.AuthMiddleware
  VideoHandler   *handlers.VideoHandler
  ImportHandler  *handlers.ImportHandler
  QAHandler      *handlers.QAHandler
  QuizHandler    *handlers.QuizHandler
  SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/login", cfg.AuthHandler.Login)

// ===============
// || Protected ||
// ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
  // Videos
  protected.POST("/videos", cfg.VideoHandler.CreateVideo)
  protected.GET("/videos", cfg.VideoHandler.ListVideos)
  protected.GET("/videos/search", cfg.VideoHandler.SearchSegments)
  protected.GET("/videos/:id", cfg.VideoHandler.GetVideo)
  protected.DELETE("/videos/:id", cfg.VideoHandler.DeleteVideo)
  protected.GET("/videos/:id/events", cfg.VideoHandler.ListEvents)
  protected.POST("/videos/:id/index", cfg.VideoHandler.StartIndexing)
  protected.GET("/videos/:id/transcript", cfg.QAHandler.GetTranscript)
  protected.POST("/videos/:id/ask", cfg.QAHandler.AskQuestion)
  protected.POST("/videos/:id/quizzes", cfg.QuizHandler.GenerateQuiz)
  protected.GET("/videos/:id/quizzes", cfg.QuizHandler.ListQuizzesForVideo)
  // Quizzes
  protected.GET("/quizzes/:id", cfg.QuizHandler.GetQuiz)
  // Imports
  protected.POST("/imports", cfg.ImportHandler.CreateImportJob)
  protected.GET("/imports", cfg.ImportHandler.ListImportJobs)
  protected.GET("/imports/:id", cfg.ImportHandler.GetImportJob)

  return router
}
