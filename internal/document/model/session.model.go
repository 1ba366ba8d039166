package model

import (
	"encoding/json"
	"time"
)

type CreateSessionRequest struct {
	// SessionID reopens a previously created session when set.
	SessionID string `json:"session_id"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionInfo struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Theme   string     `json:"theme"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
	Viewers int        `json:"viewers"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ColorRequest struct {
	Color string `json:"color"`
}

type ToggleRequest struct {
	Section string `json:"section"`
}

type ToggleResponse struct {
	Section        string   `json:"section"`
	Hidden         bool     `json:"hidden"`
	HiddenSections []string `json:"hidden_sections"`
}

// ConfirmRequired is returned with 428 when a replace needs the user's consent.
type ConfirmRequired struct {
	Prompt string `json:"prompt"`
}

// PreviewPayload is the body of a PREVIEW websocket message.
type PreviewPayload struct {
	Kind    string `json:"kind"`
	Section string `json:"section,omitempty"`
	JSON    string `json:"json"`
	HTML    string `json:"html"`
}

// DocumentUpdate is the body of an UPDATE websocket message.
type DocumentUpdate struct {
	Document json.RawMessage `json:"document"`
}
