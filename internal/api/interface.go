package api

import (
	"context"

	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/stream"
)

// ClientInterface defines the backend operations used by commands and the TUI
type ClientInterface interface {
	StreamChat(ctx context.Context, message, sessionID string) (stream.Source, error)
	Chat(ctx context.Context, message, sessionID string) (*models.ChatReply, error)
	Health(ctx context.Context) (*models.HealthStatus, error)
	KnowledgeBase(ctx context.Context) (*models.KnowledgeBaseStatus, error)
	Reindex(ctx context.Context) (*models.ReindexResult, error)
	BaseURL() string
	Close()
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)
