// Package pending tracks optimistic messages until the server confirms them.
package pending

import (
	"slices"
	"time"

	"realtime-sync/internal/models"
)

type entry struct {
	msg     models.Message
	addedAt time.Time
}

// Tracker maps clientMsgId to the locally pending message. Every entry
// leaves the tracker exactly once, through Take or Expire. A Tracker is
// not safe for concurrent use; the engine loop owns it.
type Tracker struct {
	entries map[string]entry
	order   []string
	now     func() time.Time
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Add records msg as pending under clientMsgID. Re-adding an id overwrites
// the previous message and restarts its expiry clock.
func (t *Tracker) Add(clientMsgID string, msg models.Message) {
	if clientMsgID == "" {
		return
	}
	msg.ClientMsgID = clientMsgID
	msg.Status = models.MessageStatusPending
	if _, ok := t.entries[clientMsgID]; !ok {
		t.order = append(t.order, clientMsgID)
	}
	t.entries[clientMsgID] = entry{msg: msg, addedAt: t.now()}
}

// Take removes and returns the pending message for clientMsgID.
func (t *Tracker) Take(clientMsgID string) (models.Message, bool) {
	e, ok := t.entries[clientMsgID]
	if !ok {
		return models.Message{}, false
	}
	t.remove(clientMsgID)
	return e.msg, true
}

// Has reports whether clientMsgID is pending.
func (t *Tracker) Has(clientMsgID string) bool {
	_, ok := t.entries[clientMsgID]
	return ok
}

// PeekAll returns the pending messages in the order they were added.
func (t *Tracker) PeekAll() []models.Message {
	out := make([]models.Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id].msg)
	}
	return out
}

// Len returns the number of pending messages.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Expire removes every entry pending for longer than timeout and returns
// them marked Failed. A non-positive timeout disables expiry.
func (t *Tracker) Expire(timeout time.Duration) []models.Message {
	if timeout <= 0 || len(t.entries) == 0 {
		return nil
	}

	now := t.now()
	var expired []models.Message
	for _, id := range slices.Clone(t.order) {
		e := t.entries[id]
		if now.Sub(e.addedAt) < timeout {
			continue
		}
		t.remove(id)
		e.msg.Status = models.MessageStatusFailed
		expired = append(expired, e.msg)
	}
	return expired
}

func (t *Tracker) remove(clientMsgID string) {
	delete(t.entries, clientMsgID)
	if i := slices.Index(t.order, clientMsgID); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
}

// Peek returns the pending message for clientMsgID without removing it.
func (t *Tracker) Peek(clientMsgID string) (models.Message, bool) {
	e, ok := t.entries[clientMsgID]
	return e.msg, ok
}
