package realtime

import (
	"context"

	"realtime-sync/internal/models"
)

// UseCase is the sync engine as seen by the UI layer. Every method is
// served by the engine loop, so callers never touch engine state directly.
//
//go:generate mockery --name UseCase
type UseCase interface {
	// Run drives the engine until ctx is cancelled or Shutdown is called.
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// Connect authenticates and starts the connection. Without a token it
	// returns connection.ErrMissingToken and the engine stays offline.
	Connect(ctx context.Context) error
	// Logout tears the connection down. Seen and pending bookkeeping survive.
	Logout(ctx context.Context) error

	SetActiveConversation(ctx context.Context, id string) error
	SendMessage(ctx context.Context, ip SendMessageInput) (models.Message, error)

	UnreadCount(ctx context.Context) (int, error)
	ClearUnread(ctx context.Context) error
	PendingMessages(ctx context.Context) ([]models.Message, error)
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Stats(ctx context.Context) (Stats, error)
}
