package db

import (
	"fmt"
	"time"

	"github.com/xpanvictor/interm/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	sqlDB.SetMaxIdleConns(poolSize / 2)
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
