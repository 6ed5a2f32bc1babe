package models

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Lifecycle is the state of a message as it moves from placeholder to content
type Lifecycle string

const (
	LifecyclePending   Lifecycle = "pending"
	LifecycleStreaming Lifecycle = "streaming"
	LifecycleFinal     Lifecycle = "final"
	LifecycleError     Lifecycle = "error"
)

// InFlight reports whether the lifecycle belongs to an exchange still running
func (l Lifecycle) InFlight() bool {
	return l == LifecyclePending || l == LifecycleStreaming
}

// Terminal reports whether the lifecycle is final or error
func (l Lifecycle) Terminal() bool {
	return l == LifecycleFinal || l == LifecycleError
}

// Message represents one entry of the chat timeline
type Message struct {
	ID        string
	Role      Role
	Content   string
	Lifecycle Lifecycle
	// Partial holds text received before a stream failed. Only set when
	// Lifecycle is LifecycleError.
	Partial string
}
