package main

import (
	"os"
	"os/signal"
	"syscall"

	"medibook/internal/housekeeping"
	"medibook/internal/notifications"
	otprepository "medibook/internal/otp/repository"
	otpservice "medibook/internal/otp/service"
	"medibook/pkg/config"
	mongotx "medibook/pkg/db/mongo"
)

const ServiceName = "housekeeper"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.StorageDriver != config.DriverMongo {
		cfg.Log.Fatal("Housekeeper requires STORAGE_DRIVER=mongo", "storage_driver", cfg.StorageDriver)
	}
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	repo := otprepository.NewMongoChallengeRepository(cfg, mongotx.NewTransactionManager(cfg.Client.Mongo))
	manager := otpservice.NewManager(repo, notifications.NewLogSender(cfg.Log), otpservice.ConfigFrom(cfg), cfg.Log)

	srv := housekeeping.NewServer(cfg)
	if err := srv.Start(housekeeping.NewServeMux(manager, cfg.Log)); err != nil {
		cfg.Log.Fatal("Failed to start task server", "error", err)
	}

	scheduler, err := housekeeping.NewScheduler(cfg)
	if err != nil {
		srv.Shutdown()
		cfg.Log.Fatal("Failed to create scheduler", "error", err)
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		cfg.Log.Fatal("Failed to start scheduler", "error", err)
	}

	cfg.Log.Info("Housekeeper started", "redis_addr", cfg.RedisAddr, "interval", cfg.OTPSweepInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	cfg.Log.Info("Shutting down housekeeper", "signal", sig.String())

	scheduler.Shutdown()
	srv.Shutdown()
	cfg.Log.Info("Housekeeper stopped")
}
