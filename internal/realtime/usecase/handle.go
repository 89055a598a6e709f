package usecase

import (
	"context"

	"realtime-sync/internal/connection"
	"realtime-sync/internal/event"
	"realtime-sync/internal/models"
)

func (uc *usecase) handleFrame(ctx context.Context, f connection.Frame) {
	uc.metrics.framesReceived.Inc()

	env, err := event.Decode(f.Channel, f.Payload)
	if err != nil {
		uc.metrics.malformed.Inc()
		uc.l.Warnf(ctx, "internal.realtime.usecase.handleFrame: drop frame on %s: %v", f.Channel, err)
		return
	}

	res, err := uc.classifier.Classify(env)
	if err != nil {
		uc.metrics.malformed.Inc()
		uc.l.Warnf(ctx, "internal.realtime.usecase.handleFrame: drop %s on %s: %v", env.Type, f.Channel, err)
		return
	}

	uc.metrics.classified.WithLabelValues(res.Kind.String()).Inc()
	uc.apply(ctx, res)
}

// apply turns a classified event into state changes and UI callbacks.
func (uc *usecase) apply(ctx context.Context, res event.Result) {
	switch res.Kind {
	case event.KindDuplicate:
		uc.l.Debugf(ctx, "internal.realtime.usecase.apply: duplicate %s %s on %s", res.Tag, res.Key, res.Channel)
	case event.KindNotification:
		d := uc.gate.Handle(ctx, *res.Notification)
		uc.metrics.decisions.WithLabelValues(d.Kind.String()).Inc()
		if uc.cb.OnNotificationDecision != nil {
			uc.cb.OnNotificationDecision(d)
		}
	case event.KindReconciliation:
		msg := *res.Message
		uc.store.UpsertMessage(msg)
		uc.l.Debugf(ctx, "internal.realtime.usecase.apply: confirmed %s as %s", msg.ClientMsgID, msg.ID)
		if msg.ConversationID == uc.store.Active() {
			uc.emitMessage(msg)
		}
	case event.KindNew:
		uc.applyNew(ctx, res)
	}
}

func (uc *usecase) applyNew(ctx context.Context, res event.Result) {
	switch res.Tag {
	case models.TagConversationCreated:
		uc.store.PrependConversation(*res.Conversation)
	case models.TagConversationAssigned:
		uc.store.ReplaceConversation(*res.Conversation)
	case models.TagConversationDeleted:
		if _, wasActive := uc.store.RemoveConversation(res.Conversation.ID); wasActive {
			if err := uc.router.SetActiveConversation(ctx, ""); err != nil {
				uc.l.Warnf(ctx, "internal.realtime.usecase.applyNew: %v", err)
			}
		}
	case models.TagMessageCreated:
		msg := *res.Message
		appended := uc.store.UpsertMessage(msg)
		if msg.ConversationID == uc.store.Active() {
			uc.emitMessage(msg)
		} else if appended {
			uc.store.IncrementUnread()
		}
	case models.TagReactionUpdated:
		uc.store.SetLatestReaction(*res.Reaction)
		if uc.cb.OnReactionEvent != nil {
			uc.cb.OnReactionEvent(*res.Reaction)
		}
	}
}

func (uc *usecase) emitMessage(msg models.Message) {
	if uc.cb.OnIncomingMessage != nil {
		uc.cb.OnIncomingMessage(msg)
	}
}

// failSend marks an optimistic message failed and reports it.
func (uc *usecase) failSend(ctx context.Context, msg models.Message) {
	msg.Status = models.MessageStatusFailed
	uc.store.MarkFailed(msg.ConversationID, msg.ClientMsgID)
	uc.metrics.sendFailures.Inc()
	if uc.cb.OnSendFailed != nil {
		uc.cb.OnSendFailed(msg)
	}
}
