package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/ethiobus/booking-backend/internal/config"
	"github.com/ethiobus/booking-backend/internal/database"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stdout)

	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Usage = func() {
		logger.Info("usage: migrate [--timeout=5m] up|down|status|version")
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db.DB.DB, logger)
	if err != nil {
		logger.Fatalf("Failed to prepare migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var v int64
		if v, err = migrator.Version(ctx); err == nil {
			logger.Infof("Current schema version: %d", v)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("Migration %s failed: %v", command, err)
	}
	logger.Infof("Migration %s finished", command)
}
