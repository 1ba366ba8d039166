package repository

import (
	"database/sql"
	"errors"

	"jsoncv/pkg/logger"
	"jsoncv/store"
)

// StateRepository keeps editor state in Postgres, one row per session and key.
type StateRepository struct {
	DB *sql.DB
}

func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{DB: db}
}

func (r *StateRepository) EnsureSchema() error {
	_, err := r.DB.Exec(`CREATE TABLE IF NOT EXISTS editor_state (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (session_id, key)
	)`)
	if err != nil {
		logger.Sugar.Errorf("Failed to create editor_state table: %v", err)
	}
	return err
}

func (r *StateRepository) Get(sessionID, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRow("SELECT value FROM editor_state WHERE session_id = $1 AND key = $2", sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get %s for session %s: %v", key, sessionID, err)
		return "", false, err
	}
	return value, true, nil
}

func (r *StateRepository) Set(sessionID, key, value string) error {
	_, err := r.DB.Exec(`INSERT INTO editor_state (session_id, key, value, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id, key) DO UPDATE SET value = $3, updated_at = NOW()`, sessionID, key, value)
	if err != nil {
		logger.Sugar.Errorf("Failed to set %s for session %s: %v", key, sessionID, err)
	}
	return err
}

func (r *StateRepository) DeleteSession(sessionID string) error {
	_, err := r.DB.Exec("DELETE FROM editor_state WHERE session_id = $1", sessionID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete state of session %s: %v", sessionID, err)
	}
	return err
}

// Backend implements store.Provider.
func (r *StateRepository) Backend(sessionID string) (store.Backend, error) {
	return &sessionState{repo: r, sessionID: sessionID}, nil
}

// Drop implements store.Provider.
func (r *StateRepository) Drop(sessionID string) error {
	return r.DeleteSession(sessionID)
}

type sessionState struct {
	repo      *StateRepository
	sessionID string
}

func (s *sessionState) Get(key string) (string, bool, error) {
	return s.repo.Get(s.sessionID, key)
}

func (s *sessionState) Set(key, value string) error {
	return s.repo.Set(s.sessionID, key, value)
}
