package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/migrations"
	"github.com/hhi-dashboard/api/pkg/config"
	"github.com/hhi-dashboard/api/pkg/database"
	"github.com/hhi-dashboard/api/pkg/logger"
)

func main() {
	rollback := flag.Bool("rollback", false, "revert the most recent migration")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.OpenPostgres(context.Background(), cfg.DatabaseURL, cfg.AppEnv)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if *rollback {
		if err := migrations.RollbackLast(db); err != nil {
			log.Fatal("rollback failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stdout, "rolled back last migration")
		return
	}

	if err := migrations.Run(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	fmt.Fprintln(os.Stdout, "migrations completed")
}
