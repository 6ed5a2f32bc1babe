// Package models contains data types and constants for the docchat backend API.
package models

// DefaultServerURL is used when no server is configured
const DefaultServerURL = "http://localhost:8000"

// Endpoint paths, relative to the server base URL
const (
	PathChatStream    = "/api/chat/stream"
	PathChat          = "/api/chat"
	PathHealth        = "/api/health"
	PathKnowledgeBase = "/api/kb"
	PathReindex       = "/api/reindex"
)

// Stream protocol markers
const (
	// EventPrefix starts every meaningful line of the chat stream
	EventPrefix = "data:"

	// DoneSentinel may precede stream close; it carries no event
	DoneSentinel = "[DONE]"

	// EventTypeSession tags the session-assignment record
	EventTypeSession = "session"
)

// Record field names in stream payloads
const (
	FieldSessionID = "session_id"
	FieldType      = "type"
	FieldDelta     = "delta"
	FieldError     = "error"
)

// DefaultHeaders returns headers sent with every request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "docchat-cli",
	}
}

// StreamHeaders returns headers for the streaming chat endpoint
func StreamHeaders() map[string]string {
	h := DefaultHeaders()
	h["Accept"] = "text/event-stream"
	h["Cache-Control"] = "no-cache"
	return h
}
