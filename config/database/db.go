package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"jsoncv/config"
	"jsoncv/pkg/logger"
)

const (
	connectAttempts = 5
	retryDelay      = 2 * time.Second
)

// Connect opens the Postgres database and waits until it answers.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	// Retry a few times in case of temporary DNS/network blips
	for i := 0; i < connectAttempts; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", retryDelay, err)
		time.Sleep(retryDelay)
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
}
