package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/channelops/backend/internal/infrastructure/config"
	"github.com/channelops/backend/internal/infrastructure/logger"
	"github.com/channelops/backend/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log, gormlogger.Warn, 0))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	models := persistence.AllModels()
	log.Info("Running migrations",
		zap.String("database", cfg.Database.DBName),
		zap.Int("models", len(models)),
	)

	if err := db.DB.AutoMigrate(models...); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	log.Info("Migrations complete")
}
