package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Encode marshals m, returning nil if it cannot be encoded.
func (m Message) Encode() []byte {
	b, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("action", m.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}
