package domain

// Event is pushed to websocket subscribers of a session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Ts        int64     `json:"ts"` // Unix milliseconds
	Message   *Message  `json:"message,omitempty"`
}
