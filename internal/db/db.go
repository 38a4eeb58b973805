package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Download struct {
	ID           uint `gorm:"primaryKey"`
	FileName     string
	Keyword      string
	Source       string
	Bytes        int64
	DownloadedAt int64
}

type Search struct {
	ID         uint `gorm:"primaryKey"`
	Keyword    string
	Status     string
	Attempts   string
	Replies    int
	FinishedAt int64
}

func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every new connection to ":memory:" would see an empty database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Download{}, &Search{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
