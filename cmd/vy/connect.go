package main

import (
	"context"
	"fmt"

	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/db"
	"github.com/zulandar/vibeyard/internal/logger"
	"gorm.io/gorm"
)

func connectFromConfig(ctx context.Context, configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.ConnectWithRetry(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", describeDB(cfg.Database), err)
	}
	return cfg, gormDB, nil
}

// describeDB names the configured database for progress lines.
func describeDB(d config.DatabaseConfig) string {
	if d.Driver == "mysql" {
		return fmt.Sprintf("mysql %s:%d/%s", d.Host, d.Port, d.Name)
	}
	return "sqlite " + d.Path
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}
