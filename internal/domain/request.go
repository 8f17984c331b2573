package domain

// ChatRequest is the body of POST /api/chat/send.
type ChatRequest struct {
	SessionID   string  `json:"session_id"`
	Message     string  `json:"message"`
	ImageBase64 *string `json:"image_base64,omitempty"`
}

// Image returns the submitted image, or "" when none was sent.
func (r *ChatRequest) Image() string {
	if r.ImageBase64 == nil {
		return ""
	}
	return *r.ImageBase64
}

// ChatResponse is the result of a completed turn.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
}

// StatusMessage is the body returned by liveness and delete endpoints.
type StatusMessage struct {
	Message string `json:"message"`
}

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// TurnRequest is the input of the turn pipeline.
type TurnRequest struct {
	SessionID   string
	Message     string
	ImageBase64 string
}

// TurnResult is the output of a successful turn.
type TurnResult struct {
	Response  string
	SessionID string
	MessageID string
}
