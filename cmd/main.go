package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/data/db"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/data/repos"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/groq"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/realtime/bus"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/server"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/services"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/utils"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/ws"
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
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = db.AutoMigrateAll(postgresService.DB()); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	runner := dbctx.NewGormRunner(thePG)

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	topicRepo := repos.NewTopicRepo(thePG, log)
	sessionRepo := repos.NewChatSessionRepo(thePG, log)
	messageRepo := repos.NewChatMessageRepo(thePG, log)
	progressRepo := repos.NewSubtopicProgressRepo(thePG, log)

	// Event bus
	eventBus := bus.Bus(bus.NewNoop())
	if os.Getenv("REDIS_ADDR") != "" {
		redisBus, err := bus.NewRedisBus(log)
		if err != nil {
			log.Error("Could not init redis bus", "error", err)
			os.Exit(1)
		}
		eventBus = redisBus
	} else {
		log.Warn("REDIS_ADDR not set, cross-instance events disabled")
	}
	defer eventBus.Close()

	// Services
	log.Info("Setting up Services from main...")
	groqClient, err := groq.NewClient(log)
	if err != nil {
		log.Error("Could not init GroqClient", "error", err)
		os.Exit(1)
	}
	tokenService, err := services.NewTokenService(log, jwtSecretKey)
	if err != nil {
		log.Error("Could not init TokenService", "error", err)
		os.Exit(1)
	}
	progressService := services.NewProgressService(runner, log, topicRepo, progressRepo)
	learningService := services.NewLearningService(
		log,
		groqClient,
		userRepo,
		topicRepo,
		sessionRepo,
		messageRepo,
		progressRepo,
		progressService,
		eventBus,
	)
	onboardingService := services.NewOnboardingService(log, userRepo, learningService)

	// Websocket layer
	log.Info("Setting up websocket registry from main...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := ws.NewRegistry(log)
	go registry.Run(ctx)
	if err := eventBus.StartForwarder(ctx, registry.Deliver); err != nil {
		log.Error("Could not start event forwarder", "error", err)
		os.Exit(1)
	}
	dispatcher := ws.NewDispatcher(log, onboardingService, learningService)
	wsHandler := ws.NewHandler(log, tokenService, userRepo, registry, dispatcher)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		WSHandler: wsHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
