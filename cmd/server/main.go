package main // Entry point package

import (
	"context" // Root context for background workers
	"log"     // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/bytebond/bytebond/internal/config"     // Internal config loader
	"github.com/bytebond/bytebond/internal/database"   // MySQL pool
	"github.com/bytebond/bytebond/internal/game"       // Matchmaking and round state machine
	"github.com/bytebond/bytebond/internal/handler"    // HTTP handlers
	"github.com/bytebond/bytebond/internal/hub"        // Websocket signal hub
	"github.com/bytebond/bytebond/internal/queue"      // RabbitMQ publisher and consumer
	"github.com/bytebond/bytebond/internal/repository" // Data access layer
	"github.com/bytebond/bytebond/internal/router"     // Route registration
	"github.com/bytebond/bytebond/internal/scheduler"  // Periodic matchmaking driver
	"github.com/bytebond/bytebond/internal/utils"      // Password hashing for the bootstrap admin
)

func main() {
	// .env is a development convenience; in production the variables come
	// from the environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter; nil disables limiting rather than
	// blocking startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}

	// Repositories share the one pool.
	events := repository.NewEventRepo(db)
	users := repository.NewUserRepo(db)
	questions := repository.NewQuestionRepo(db)
	answers := repository.NewUserAnswerRepo(db)
	conns := repository.NewConnectionRepo(db)
	assignments := repository.NewConnectionQuestionRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Seed the bootstrap admin so admin login works on a fresh database.
	// Re-seeding an existing email is a no-op.
	if cfg.AdminEmail != "" && cfg.AdminPass != "" {
		hash, err := utils.HashPassword(cfg.AdminPass, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("hash admin password: %v", err)
		}
		if _, err := users.CreateAdmin(context.Background(), nil, "admin", cfg.AdminEmail, hash); err != nil && err != repository.ErrDuplicate {
			log.Fatalf("seed admin: %v", err)
		}
	}

	// Websocket hub delivers refresh/cancelled signals to attendees.
	h := hub.New()
	go h.Run()

	publisher := queue.NewPublisher(cfg.AMQPURL)

	svc := game.NewService(db, events, users, answers, conns, assignments, h, publisher, game.Options{
		PairTTL:          cfg.PairTTL,
		QuestionsPerUser: cfg.QuestionsPerUser,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Matchmaking pass: sweep expired rounds then pair available users,
	// once per tick across all active events. The same tick purges expired
	// refresh tokens.
	go scheduler.New(svc, cfg.PassInterval, 0, tokens.DeleteExpired).Run(ctx)

	// Consumer appends connection lifecycle events to logs/game.log.
	go queue.StartConnectionConsumer(cfg.AMQPURL)

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, events, tokens),
		User:       handler.NewUserHandler(cfg, users, events, tokens),
		Question:   handler.NewQuestionHandler(questions),
		Answer:     handler.NewUserAnswerHandler(answers),
		Game:       handler.NewGameHandler(users, svc),
		Event:      handler.NewEventHandler(events, svc),
		Connection: handler.NewConnectionHandler(conns),
		WS:         handler.NewWSHandler(cfg.JWTSecret, h),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
