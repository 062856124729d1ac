package main

import (
	"context"
	"os"
	"time"

	mongoMigration "medibook/internal/migrations/mongo"
	"medibook/pkg/config"
	"medibook/pkg/logger"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

const JobName = "mongo-migration"

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Mongo schema management for the booking services",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Minute, "Overall deadline for the migration")

	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(indexesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create collections with their validators, then ensure indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, mongoMigration.RunMigration)
		},
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Ensure indexes on existing collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, mongoMigration.EnsureIndexes)
		},
	}
}

type migration func(ctx context.Context, db *mongo.Database, log *logger.Logger) error

func withDatabase(cmd *cobra.Command, run migration) error {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job", "command", cmd.Name())
	if err := run(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log); err != nil {
		cfg.Log.Error("Migration failed", "command", cmd.Name(), "error", err)
		return err
	}
	cfg.Log.Info("Migration completed", "command", cmd.Name())
	return nil
}
