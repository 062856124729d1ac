package main

import (
	"medibook/internal/bookings/handler"
	"medibook/internal/bookings/repository"
	"medibook/internal/bookings/service"
	"medibook/internal/bookings/validator"
	"medibook/internal/directory"
	"medibook/internal/health"
	"medibook/internal/notifications"
	otphandler "medibook/internal/otp/handler"
	otprepository "medibook/internal/otp/repository"
	otpservice "medibook/internal/otp/service"
	worklisthandler "medibook/internal/worklist/handler"
	worklistservice "medibook/internal/worklist/service"
	"medibook/pkg/app"
	"medibook/pkg/config"
	"medibook/pkg/db"
	"medibook/pkg/db/memory"
	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/lock"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	if cfg.UsesRedis() {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Bookings service")

	sender, closeSender, err := notifications.NewSender(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize notification sender", "error", err)
	}

	dir, err := directory.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize directory client", "error", err)
	}

	bookingRepo, challengeRepo := initRepositories(cfg)
	otpManager := otpservice.NewManager(challengeRepo, sender, otpservice.ConfigFrom(cfg), cfg.Log)

	bookingService := service.NewBookingService(
		bookingRepo,
		otpManager,
		dir,
		initLocker(cfg),
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)
	worklistService := worklistservice.NewWorklistService(bookingRepo, dir, nil, cfg.Log)

	serverApp := app.NewApplication()
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.OnShutdown(func() {
		if err := closeSender(); err != nil {
			cfg.Log.Error("Failed to close notification sender", "error", err)
		}
	})
	serverApp.SetApp(cfg,
		initHealth(cfg),
		handler.NewBookingHandler(bookingService, cfg.Log),
		otphandler.NewOTPHandler(otpManager, cfg.Log),
		worklisthandler.NewWorklistHandler(worklistService, cfg.Log),
	)
	serverApp.Run()
}

// initRepositories builds both repositories on one transaction manager so a
// status change and the challenge it consumes commit together.
func initRepositories(cfg *config.Config) (repository.BookingRepository, otprepository.ChallengeRepository) {
	var txManager db.TransactionManager
	if cfg.StorageDriver == config.DriverMemory {
		txManager = memory.NewTransactionManager()
		cfg.Log.Warn("Using in-memory storage, data is lost on restart")
		return repository.NewMemoryBookingRepository(txManager), otprepository.NewMemoryChallengeRepository(txManager)
	}

	txManager = mongotx.NewTransactionManager(cfg.Client.Mongo)
	cfg.Log.Info("Repositories initialized", "driver", cfg.StorageDriver, "database", cfg.MongoDatabaseName)
	return repository.NewMongoBookingRepository(cfg, txManager), otprepository.NewMongoChallengeRepository(cfg, txManager)
}

func initLocker(cfg *config.Config) lock.Locker {
	switch cfg.LockDriver {
	case config.DriverRedis:
		return lock.NewRedisLocker(cfg.Client.Redis, cfg.LockTTL, cfg.LockWait, cfg.Log)
	case config.DriverMongo:
		return lock.NewMongoLocker(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.LockTTL, cfg.LockWait, cfg.Log)
	default:
		return lock.NewMemoryLocker(cfg.LockWait)
	}
}

func initHealth(cfg *config.Config) *health.HealthHandler {
	h := health.NewHealthHandler(cfg.Log)
	if cfg.Client.Mongo != nil {
		h.With("mongo", health.MongoCheck(cfg.Client.Mongo))
	}
	if cfg.Client.Redis != nil {
		h.With("redis", health.RedisCheck(cfg.Client.Redis))
	}
	return h
}
