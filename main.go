package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"contestsphere-server/database"
	"contestsphere-server/handlers"
	"contestsphere-server/middleware"
	"contestsphere-server/payments"
	"contestsphere-server/pkg/config"
	"contestsphere-server/pkg/logger"
	"contestsphere-server/services"
	"contestsphere-server/storage"
	"contestsphere-server/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "contestsphere-server",
		Env:     cfg.AppEnv,
	})
	if err != nil {
		os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DatabaseURL,
		LogLevel: database.LevelFor(cfg.AppEnv),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	var store storage.ObjectStore
	if cfg.R2Enabled() {
		r2, err := storage.NewR2(ctx, storage.R2Config{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2BucketName,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		store = r2
	} else {
		log.Warn("R2 credentials not set, image uploads disabled")
	}

	var processor payments.Processor
	if cfg.StripeSecretKey != "" {
		processor = payments.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, paid contest entry disabled")
	}

	clock := clockwork.NewRealClock()
	authService := services.NewAuthService(db, clock, cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(db, clock)
	contestService := services.NewContestService(db, clock)
	participationService := services.NewParticipationService(db, clock)
	paymentService := services.NewPaymentService(db, clock, processor, cfg.PaymentCurrency, cfg.PaymentIntentTTL)
	counterService := services.NewCounterService(db)

	sched, err := services.StartReconcileScheduler(ctx, clock, counterService, cfg.ReconcileInterval)
	if err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	go workers.PollStalePayments(ctx, clock, paymentService, cfg.PaymentSweepInterval)

	app := fiber.New(fiber.Config{
		AppName:      "contestsphere-server",
		BodyLimit:    handlers.MaxImageBytes + 1024*1024,
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: cfg.Origins() != "*",
		MaxAge:           86400,
	}))

	handlers.Setup(app, handlers.Deps{
		DB:             db,
		Auth:           authService,
		Users:          userService,
		Contests:       contestService,
		Participations: participationService,
		Payments:       paymentService,
		Counters:       counterService,
		Store:          store,
		AuthRateLimit:  cfg.AuthRateLimit,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	log.Info("server running",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("env", cfg.AppEnv),
		zap.String("origins", cfg.Origins()))

	<-ctx.Done()
	log.Info("shutting down server")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}
	if err := sched.Shutdown(); err != nil {
		log.Error("scheduler shutdown error", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
