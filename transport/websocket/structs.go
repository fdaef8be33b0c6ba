package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
)

type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type PlayerRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type RoomRef struct {
	Code string `json:"code,omitempty"`
}

type Payload struct {
	Player *entity.Player `json:"player,omitempty"`
	Room   *entity.Room   `json:"room,omitempty"`
	Notice string         `json:"notice,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type request struct {
	Player *PlayerRef `json:"player,omitempty"`
	Room   *RoomRef   `json:"room,omitempty"`
	Cell   *int       `json:"cell,omitempty"`
	Item   string     `json:"item,omitempty"`
}
