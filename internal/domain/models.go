package domain

import "time"

// Session is a conversation thread grouping an ordered sequence of messages.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one immutable entry of a session.
// ImageURL holds the image exactly as the client submitted it (base64, optionally a data URL).
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HasImage reports whether the message carries an image.
func (m *Message) HasImage() bool {
	return m.ImageURL != ""
}
