package db

import (
	"fmt"

	configs "github.com/codeclash-dev/DuelWssManagerService/internal/config"
	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitPsql(cfg *configs.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.PsqlURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&model.MatchRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate match records: %w", err)
	}

	return db, nil
}
