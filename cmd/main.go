package main

import (
	"log"
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/codeclash-dev/DuelWssManagerService/internal/config"
	"github.com/codeclash-dev/DuelWssManagerService/internal/db"
	"github.com/codeclash-dev/DuelWssManagerService/internal/handlers"
	"github.com/codeclash-dev/DuelWssManagerService/internal/judge"
	"github.com/codeclash-dev/DuelWssManagerService/internal/jwt"
	"github.com/codeclash-dev/DuelWssManagerService/internal/logging"
	"github.com/codeclash-dev/DuelWssManagerService/internal/matchmaking"
	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"github.com/codeclash-dev/DuelWssManagerService/internal/question"
	"github.com/codeclash-dev/DuelWssManagerService/internal/rating"
	"github.com/codeclash-dev/DuelWssManagerService/internal/repo"
	"github.com/codeclash-dev/DuelWssManagerService/internal/session"
	"github.com/codeclash-dev/DuelWssManagerService/internal/wss"
	wsshandler "github.com/codeclash-dev/DuelWssManagerService/internal/wss/handlers"
	wsstypes "github.com/codeclash-dev/DuelWssManagerService/internal/wss/types"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	mongoClient, err := db.InitMongo(&cfg)
	if err != nil {
		logger.Fatal("mongo init failed", zap.Error(err))
	}
	redisClient, err := db.NewRedisClient(&cfg)
	if err != nil {
		logger.Fatal("redis init failed", zap.Error(err))
	}
	psqlDB, err := db.InitPsql(&cfg)
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	questions := question.NewMongoStore(mongoClient, cfg.MongoDBName, rng)
	ratingStore := rating.NewRedisStore(redisClient)
	ratingEngine := rating.NewEngine(ratingStore, logger)
	matchRepo := repo.NewPSQLRepository(psqlDB)
	jwtManager := jwt.NewJWTManager(cfg.JWTSecret)

	judgeClient := judge.NewClient(judge.Config{
		BaseURL:      cfg.JudgeBaseURL,
		APIKey:       cfg.JudgeAPIKey,
		APIHost:      cfg.JudgeAPIHost,
		PollInterval: cfg.JudgePollInterval,
		MaxPolls:     cfg.JudgeMaxPolls,
	}, logger)

	registry := session.NewRegistry(logger)

	mode := model.ParseMatchMode(cfg.DuelMode)
	sessionCfg := session.Config{
		CountdownTicks: cfg.CountdownTicks,
		TickInterval:   time.Second,
		RevealTime:     cfg.RevealTime,
		DuelTime:       mode.Duration(),
		GraceTime:      cfg.GraceTime,
		MaxAttempts:    cfg.MaxAttempts,
	}

	launcher := &session.Launcher{
		Registry:     registry,
		Questions:    questions,
		Jwt:          jwtManager,
		Mode:         mode,
		Cfg:          sessionCfg,
		RequeueDelay: cfg.RequeueDelay,
		Deps: session.Deps{
			Judge:     judgeClient,
			Ratings:   ratingEngine,
			Recorder:  matchRepo,
			Log:       logger,
			OnDispose: func(sessionID string) {},
		},
		Log: logger,
	}

	queue := matchmaking.NewQueue(matchmaking.Config{
		BaseTolerance: cfg.BaseTolerance,
		Step:          cfg.ToleranceStep,
		Window:        cfg.ToleranceWindow,
	}, func(a, b matchmaking.Entry) {
		launcher.HandleMatch(seatFor(a), seatFor(b))
	}, logger)

	launcher.Deps.OnDispose = registry.Remove
	launcher.Requeue = func(seat session.Seat) {
		queue.Enqueue(matchmaking.Entry{
			ConnID:      seat.ConnID,
			UserID:      seat.UserID,
			DisplayName: seat.DisplayName,
			Rating:      seat.Rating,
			Conn:        seat.Conn,
		})
	}

	state := &wsstypes.State{
		Queue:         queue,
		Registry:      registry,
		Ratings:       ratingStore,
		JwtManager:    jwtManager,
		Log:           logger,
		BaseTolerance: cfg.BaseTolerance,
	}

	dispatcher := wss.NewDispatcher(logger)
	dispatcher.Register(wsstypes.JOIN_QUEUE, wsshandler.JoinQueueHandler)
	dispatcher.Register(wsstypes.LEAVE_QUEUE, wsshandler.LeaveQueueHandler)
	dispatcher.Register(wsstypes.JOIN_SESSION, wsshandler.JoinSessionHandler)
	dispatcher.Register(wsstypes.SUBMIT_SOLUTION, wsshandler.SubmitSolutionHandler)
	dispatcher.Register(wsstypes.PING_SERVER, wsshandler.PingHandler)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.QueueSweepInterval),
		gocron.NewTask(func() { queue.Sweep() }),
	)
	if err != nil {
		logger.Fatal("failed to schedule queue sweep", zap.Error(err))
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() { registry.SweepStale(model.StaleSessionTimeout) }),
	)
	if err != nil {
		logger.Fatal("failed to schedule stale session sweep", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Shutdown()

	api := &handlers.API{
		Ratings:  ratingStore,
		Matches:  matchRepo,
		Registry: registry,
	}

	router := gin.Default()
	api.RegisterRoutes(router)
	router.GET("/ws", gin.WrapF(wss.WsHandler(dispatcher, state)))

	logger.Info("duel manager listening", zap.String("port", cfg.HTTPPort))
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func seatFor(e matchmaking.Entry) session.Seat {
	return session.Seat{
		ConnID:      e.ConnID,
		UserID:      e.UserID,
		DisplayName: e.DisplayName,
		Rating:      e.Rating,
		Conn:        e.Conn,
	}
}
