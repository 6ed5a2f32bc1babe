package models

import "time"

// ChatRequest is the body of both chat endpoints.
// A nil SessionID asks the server to start a new conversation.
type ChatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// NewChatRequest builds a request, mapping an empty session id to null
func NewChatRequest(message, sessionID string) ChatRequest {
	req := ChatRequest{Message: message}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	return req
}

// ChatReply is the body returned by the non-streaming chat endpoint
type ChatReply struct {
	Reply     string
	SessionID string
}

// HealthStatus is returned by the health endpoint
type HealthStatus struct {
	OK              bool
	Status          string // Markdown index status, may be empty
	StartupIndexing string // Result of indexing at server startup, may be empty
}

// KnowledgeBaseStatus describes the indexed PDF corpus
type KnowledgeBaseStatus struct {
	PDFCount       int
	LatestUpdate   *time.Time // nil when the corpus is empty
	StatusMarkdown string
}

// ReindexResult is returned by the reindex endpoint
type ReindexResult struct {
	Status string
}
