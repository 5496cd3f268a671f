package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/joho/godotenv"
  "github.com/yungbote/medtrain-backend/internal/clients/redis"
  "github.com/yungbote/medtrain-backend/internal/db"
  "github.com/yungbote/medtrain-backend/internal/handlers"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/middleware"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/server"
  "github.com/yungbote/medtrain-backend/internal/services"
  "github.com/yungbote/medtrain-backend/internal/sse"
  "github.com/yungbote/medtrain-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  serverPort := utils.GetEnv("SERVER_PORT", "8080", log)
  detectorConfigPath := utils.GetEnv("DETECTOR_CONFIG_PATH", "", log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  videoRepo := repos.NewVideoRepo(thePG, log)
  segmentRepo := repos.NewSegmentRepo(thePG, log)
  eventRepo := repos.NewEventRepo(thePG, log)
  importJobRepo := repos.NewImportJobRepo(thePG, log)
  quizRepo := repos.NewQuizRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  var sseBus redis.SSEBus
  if os.Getenv("REDIS_ADDR") != "" {
    bus, busErr := redis.NewSSEBus(log)
    if busErr != nil {
      log.Warn("Could not init Redis SSE bus; running single-instance", "error", busErr)
    } else {
      sseBus = bus
      if fwdErr := bus.StartForwarder(context.Background(), sseHub.Broadcast); fwdErr != nil {
        log.Warn("Could not start Redis SSE forwarder", "error", fwdErr)
      }
    }
  }
  notifier := services.NewSSENotifier(log, sseHub, sseBus)

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Warn("Could not init BucketService", "error", err)
  }
  indexClient, err := services.NewTwelveLabsClient(log)
  if err != nil {
    log.Error("Could not init TwelveLabsClient", "error", err)
    os.Exit(1)
  }
  textGenClient, err := services.NewGeminiClient(log)
  if err != nil {
    log.Warn("Could not init GeminiClient; tag generation and Q&A disabled", "error", err)
  }
  catalogClient, err := services.NewYouTubeClient(log)
  if err != nil {
    log.Warn("Could not init YouTubeClient; catalog imports disabled", "error", err)
  }

  detectorCfg, err := services.LoadDetectorConfig(detectorConfigPath)
  if err != nil {
    log.Warn("Could not load detector config; using defaults", "error", err)
  }

  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  indexingService := services.NewIndexingService(
    log,
    videoRepo,
    segmentRepo,
    eventRepo,
    indexClient,
    textGenClient,
    bucketService,
    notifier,
    detectorCfg,
    services.IndexingConfigFromEnv(log),
  )
  indexingService.StartWorkers(context.Background())
  videoService := services.NewVideoService(log, videoRepo, segmentRepo, eventRepo, indexClient, bucketService)
  importService := services.NewImportService(log, importJobRepo, videoRepo, catalogClient, indexingService, notifier, services.ImporterConfigFromEnv(log))
  qaService := services.NewQAService(log, videoRepo, segmentRepo, textGenClient)
  quizService := services.NewQuizService(log, videoRepo, quizRepo, qaService, textGenClient)

  // Handlers
  log.Info("Setting up Handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  videoHandler := handlers.NewVideoHandler(videoService, indexingService)
  importHandler := handlers.NewImportHandler(importService)
  qaHandler := handlers.NewQAHandler(qaService)
  quizHandler := handlers.NewQuizHandler(quizService)
  sseHandler := handlers.NewSSEHandler(sseHub)

  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  router := server.NewRouter(server.RouterConfig{
    AuthHandler:    authHandler,
    AuthMiddleware: authMiddleware,
    VideoHandler:   videoHandler,
    ImportHandler:  importHandler,
    QAHandler:      qaHandler,
    QuizHandler:    quizHandler,
    SSEHandler:     sseHandler,
  })

  log.Info("Starting server", "port", serverPort)
  if err := router.Run(":" + serverPort); err != nil {
    log.Fatal("Server exited", "error", err)
  }
}
