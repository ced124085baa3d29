package websocket

import (
	"encoding/json"

	"github.com/eduplay/boardsync-backend/internal/entity"
)

// Message is the envelope every client request arrives in.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload carries the request parameters; only the fields relevant to the
// action are set.
type Payload struct {
	SessionID  string `json:"session_id,omitempty"`
	AccessCode string `json:"access_code,omitempty"`
	TeamID     string `json:"team_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Color      string `json:"color,omitempty"`
	Total      int    `json:"total,omitempty"`
	Cell       *int   `json:"cell,omitempty"`
	Choice     string `json:"choice,omitempty"`
	Reasoning  string `json:"reasoning,omitempty"`
	Text       string `json:"text,omitempty"`
	Shared     bool   `json:"shared,omitempty"`
}

// Response is what the server sends back: direct replies and broadcast
// state updates share the same shape.
type Response struct {
	Action  string            `json:"action"`
	Error   string            `json:"error,omitempty"`
	Session *entity.Session   `json:"session,omitempty"`
	State   *entity.GameState `json:"state,omitempty"`
	Team    *entity.Team      `json:"team,omitempty"`
}

const actionStateUpdate = "state:update"
