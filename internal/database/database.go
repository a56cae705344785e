package database

import (
	"log"
	"task-marketplace-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the SQLite database at dsn and runs migrations.
// glebarez/sqlite is a pure Go implementation (no CGO required).
func InitDB(dsn string, verbose bool) {
	logMode := logger.Silent
	if verbose {
		logMode = logger.Info
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := DB.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Application{},
		&models.Message{},
		&models.Rating{},
		&models.StatCounter{},
	); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
