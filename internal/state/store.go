// Package state holds the local view: conversations, a bounded window of
// messages per conversation, the unread counter and the latest reaction.
// It is owned by the engine loop and is not safe for concurrent use.
package state

import (
	"slices"

	"realtime-sync/internal/models"
)

const DefaultMaxMessages = 200

type Store struct {
	conversations  []models.Conversation
	messages       map[string][]models.Message
	activeID       string
	unread         int
	latestReaction *models.ReactionEvent
	maxMessages    int
}

func New(maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Store{
		messages:    make(map[string][]models.Message),
		maxMessages: maxMessages,
	}
}

// SetActive sets the active conversation id. "" means none.
func (s *Store) SetActive(id string) {
	s.activeID = id
}

func (s *Store) Active() string {
	return s.activeID
}

// PrependConversation puts c at the head of the list, dropping any older
// record with the same id.
func (s *Store) PrependConversation(c models.Conversation) {
	if i := s.indexOf(c.ID); i >= 0 {
		s.conversations = slices.Delete(s.conversations, i, i+1)
	}
	s.conversations = slices.Insert(s.conversations, 0, c)
}

// ReplaceConversation swaps the record with c's id for c. Preview fields
// are kept when c does not carry them. An unknown conversation is
// prepended. It reports whether a record was replaced.
func (s *Store) ReplaceConversation(c models.Conversation) bool {
	i := s.indexOf(c.ID)
	if i < 0 {
		s.PrependConversation(c)
		return false
	}
	old := s.conversations[i]
	if c.LastMessagePreview == "" {
		c.LastMessagePreview = old.LastMessagePreview
		c.LastMessageAt = old.LastMessageAt
	}
	if len(c.Participants) == 0 {
		c.Participants = old.Participants
	}
	s.conversations[i] = c
	return true
}

// RemoveConversation drops the conversation and its messages. If it was
// active the active id is cleared; wasActive reports that.
func (s *Store) RemoveConversation(id string) (removed, wasActive bool) {
	if i := s.indexOf(id); i >= 0 {
		s.conversations = slices.Delete(s.conversations, i, i+1)
		removed = true
	}
	delete(s.messages, id)
	if id != "" && s.activeID == id {
		s.activeID = ""
		wasActive = true
	}
	return removed, wasActive
}

// Conversation returns a copy of the record with id.
func (s *Store) Conversation(id string) (models.Conversation, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.conversations[i], true
	}
	return models.Conversation{}, false
}

// Conversations returns the list, newest first.
func (s *Store) Conversations() []models.Conversation {
	return slices.Clone(s.conversations)
}

// UpsertMessage stores msg in its conversation. A message with the same
// client or server id is replaced in place, so a confirmed copy takes the
// slot of its pending copy. Otherwise msg is appended and the window is
// trimmed to the newest messages. It reports whether msg was appended.
func (s *Store) UpsertMessage(msg models.Message) bool {
	list := s.messages[msg.ConversationID]
	appended := false
	if i := indexOfMessage(list, msg); i >= 0 {
		list[i] = msg
	} else {
		list = append(list, msg)
		if over := len(list) - s.maxMessages; over > 0 {
			list = slices.Delete(list, 0, over)
		}
		appended = true
	}
	s.messages[msg.ConversationID] = list
	s.touchPreview(msg)
	return appended
}

// MarkFailed flags the pending message with clientMsgID as failed.
func (s *Store) MarkFailed(conversationID, clientMsgID string) bool {
	list := s.messages[conversationID]
	for i := range list {
		if list[i].ClientMsgID == clientMsgID && list[i].Status != models.MessageStatusConfirmed {
			list[i].Status = models.MessageStatusFailed
			return true
		}
	}
	return false
}

// Messages returns the stored window for a conversation, oldest first.
func (s *Store) Messages(conversationID string) []models.Message {
	return slices.Clone(s.messages[conversationID])
}

func (s *Store) IncrementUnread() {
	s.unread++
}

func (s *Store) Unread() int {
	return s.unread
}

func (s *Store) ClearUnread() {
	s.unread = 0
}

// SetLatestReaction replaces the latest reaction; reactions do not accumulate.
func (s *Store) SetLatestReaction(r models.ReactionEvent) {
	s.latestReaction = &r
}

func (s *Store) LatestReaction() (models.ReactionEvent, bool) {
	if s.latestReaction == nil {
		return models.ReactionEvent{}, false
	}
	return *s.latestReaction, true
}

func (s *Store) touchPreview(msg models.Message) {
	i := s.indexOf(msg.ConversationID)
	if i < 0 {
		return
	}
	c := &s.conversations[i]
	if msg.CreatedAt.IsZero() || !msg.CreatedAt.Before(c.LastMessageAt) {
		c.LastMessagePreview = msg.Content
		if !msg.CreatedAt.IsZero() {
			c.LastMessageAt = msg.CreatedAt
		}
	}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.conversations, func(c models.Conversation) bool { return c.ID == id })
}

func indexOfMessage(list []models.Message, msg models.Message) int {
	return slices.IndexFunc(list, func(m models.Message) bool {
		if msg.ClientMsgID != "" && m.ClientMsgID == msg.ClientMsgID {
			return true
		}
		return msg.ID != "" && m.ID == msg.ID
	})
}
