package db

import (
	"fmt"
	"time"

	"broadcast/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

const defaultPostgresDSN = "host=localhost user=postgres password=postgres dbname=broadcast port=5432 sslmode=disable TimeZone=Africa/Nairobi"

// Init opens the configured database, migrates it and stores it in DB.
func Init(driver, dsn, sqlitePath string) {
	if driver == "sqlite" {
		dsn = sqlitePath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	} else if dsn == "" {
		// Fallback for local dev if not set
		dsn = defaultPostgresDSN
	}

	var err error
	DB, err = Open(driver, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")
}

// Open connects with the given driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return gdb, nil
}

// Migrate creates or updates every table.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostLike{},
		&models.PostRecast{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Reply{},
		&models.ReplyLike{},
		&models.Status{},
		&models.StatusLike{},
	)
}
