// Package domain defines the core domain models for the chat service.
package domain

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// EventType represents the type of an event pushed to session subscribers.
type EventType string

const (
	EventTypeMessage        EventType = "message"
	EventTypeSessionDeleted EventType = "session_deleted"
)

// TurnOutcome labels how a turn ended. Used for metrics and logs.
type TurnOutcome string

const (
	TurnOutcomeOK              TurnOutcome = "ok"
	TurnOutcomeNotFound        TurnOutcome = "not_found"
	TurnOutcomeInvalidInput    TurnOutcome = "invalid_input"
	TurnOutcomeUpstreamFailure TurnOutcome = "upstream_failure"
	TurnOutcomeStoreFailure    TurnOutcome = "store_failure"
)

// DefaultSessionTitle is the title given to every new session.
const DefaultSessionTitle = "New Chat"
