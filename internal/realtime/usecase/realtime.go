package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"realtime-sync/internal/models"
	"realtime-sync/internal/realtime"
)

func (uc *usecase) Connect(ctx context.Context) error {
	return uc.do(ctx, func(loopCtx context.Context) error {
		return uc.connect(loopCtx)
	})
}

func (uc *usecase) Logout(ctx context.Context) error {
	return uc.do(ctx, func(loopCtx context.Context) error {
		uc.teardown(loopCtx)
		uc.l.Info(loopCtx, "internal.realtime.usecase.Logout: connection torn down")
		return nil
	})
}

func (uc *usecase) SetActiveConversation(ctx context.Context, id string) error {
	return uc.do(ctx, func(loopCtx context.Context) error {
		uc.store.SetActive(id)
		if err := uc.router.SetActiveConversation(loopCtx, id); err != nil {
			uc.l.Warnf(loopCtx, "internal.realtime.usecase.SetActiveConversation: %v", err)
			return err
		}
		return nil
	})
}

// SendMessage records an optimistic message and publishes it on the
// conversation channel. The returned message is Pending, or Failed when it
// could not be encoded or the outbox is full. Transport failures after that
// point are retried by the connection manager, and an unconfirmed send
// fails through the pending timeout.
func (uc *usecase) SendMessage(ctx context.Context, ip realtime.SendMessageInput) (models.Message, error) {
	if ip.ConversationID == "" || strings.TrimSpace(ip.Content) == "" {
		return models.Message{}, realtime.ErrFieldRequired
	}

	var out models.Message
	err := uc.do(ctx, func(loopCtx context.Context) error {
		senderID, ok := uc.identity.CurrentUserID(loopCtx)
		if !ok || senderID == "" {
			return realtime.ErrUnknownIdentity
		}

		msg := models.Message{
			ClientMsgID:    uc.newID(),
			ConversationID: ip.ConversationID,
			SenderID:       senderID,
			SenderRole:     ip.SenderRole,
			Content:        ip.Content,
			CreatedAt:      uc.now(),
			Status:         models.MessageStatusPending,
		}
		uc.pending.Add(msg.ClientMsgID, msg)
		uc.store.UpsertMessage(msg)
		out = msg

		payload, err := encodeMessage(msg)
		if err == nil {
			err = uc.manager.Publish(loopCtx, models.ConversationChannel(msg.ConversationID), payload)
		}
		if err != nil {
			uc.pending.Take(msg.ClientMsgID)
			uc.failSend(loopCtx, msg)
			out.Status = models.MessageStatusFailed
			uc.l.Errorf(loopCtx, "internal.realtime.usecase.SendMessage: %v", err)
			return fmt.Errorf("send %s: %w", msg.ClientMsgID, err)
		}
		return nil
	})
	return out, err
}

func (uc *usecase) UnreadCount(ctx context.Context) (int, error) {
	var n int
	err := uc.do(ctx, func(context.Context) error {
		n = uc.store.Unread()
		return nil
	})
	return n, err
}

func (uc *usecase) ClearUnread(ctx context.Context) error {
	return uc.do(ctx, func(context.Context) error {
		uc.store.ClearUnread()
		return nil
	})
}

func (uc *usecase) PendingMessages(ctx context.Context) ([]models.Message, error) {
	var msgs []models.Message
	err := uc.do(ctx, func(context.Context) error {
		msgs = uc.pending.PeekAll()
		return nil
	})
	return msgs, err
}

func (uc *usecase) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := uc.do(ctx, func(context.Context) error {
		msgs = uc.store.Messages(conversationID)
		return nil
	})
	return msgs, err
}

func (uc *usecase) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := uc.do(ctx, func(context.Context) error {
		convs = uc.store.Conversations()
		return nil
	})
	return convs, err
}

func (uc *usecase) Stats(ctx context.Context) (realtime.Stats, error) {
	var st realtime.Stats
	err := uc.do(ctx, func(context.Context) error {
		st = realtime.Stats{
			Status:             uc.manager.Status().String(),
			ActiveConversation: uc.store.Active(),
			Subscriptions:      uc.router.Subscribed(),
			Unread:             uc.store.Unread(),
			Pending:            uc.pending.Len(),
			Seen:               uc.seen.Len(),
			Queued:             uc.manager.Queued(),
		}
		return nil
	})
	return st, err
}

// encodeMessage builds the message.created envelope for an outbound send.
func encodeMessage(msg models.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Type: models.TagMessageCreated, Data: data})
}
