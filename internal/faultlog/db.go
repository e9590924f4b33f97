// Package faultlog persists the transport's recovery diagnostics: every
// working-counter mismatch the cyclic link reports is parsed into per-slave
// fault events and journaled to a local SQLite database.
package faultlog

import (
	"database/sql"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Config holds fault journal configuration
type Config struct {
	Path string // Path to SQLite database file
}

// DB wraps the GORM database instance
type DB struct {
	db *gorm.DB
}

// NewDB creates a new fault journal database with the pure Go SQLite driver
func NewDB(config Config, log *log.Logger) (*DB, error) {
	var gormLog logger.Interface
	if log != nil {
		gormLog = logger.New(
			log,
			logger.Config{
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	} else {
		gormLog = logger.Default.LogMode(logger.Silent)
	}

	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        config.Path,
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := configureSQLite(sqlDB); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&FaultEvent{}); err != nil {
		return nil, err
	}

	if log != nil {
		log.Printf("Fault journal initialized: %s", config.Path)
	}

	return &DB{db: db}, nil
}

// configureSQLite applies settings suited to a small append-mostly journal
func configureSQLite(sqlDB *sql.DB) error {
	pragmaSettings := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=memory",
	}

	for _, pragma := range pragmaSettings {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}

	return nil
}

// GetDB returns the underlying GORM database instance
func (db *DB) GetDB() *gorm.DB {
	return db.db
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database connection is healthy
func (db *DB) Health() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
