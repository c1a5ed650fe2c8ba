// Package notifier fans published messages out to the live delivery channels
// of their recipient. Delivery is best-effort and at-most-once per channel;
// nothing is queued for recipients with no live channel.
package notifier

import (
	"sync"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/models"
	"github.com/sirupsen/logrus"
)

// Channel is one live delivery target (in practice a websocket connection).
// Send must be non-blocking apart from enqueueing; a returned error marks the
// channel dead and it is dropped from the recipient's set.
type Channel interface {
	Send(notification *models.Notification) error
	Close()
}

// recipientSet serializes all channel operations for one recipient. Holding
// the per-recipient lock across the delivery loop is what gives Publish its
// FIFO order per recipient and guarantees no channel is written after
// Unregister returns.
type recipientSet struct {
	mu       sync.Mutex
	channels []Channel
}

// Hub maps recipient identities to their live channels.
type Hub struct {
	mu         sync.RWMutex
	recipients map[string]*recipientSet
	logger     *logrus.Logger
}

func NewHub() *Hub {
	return &Hub{
		recipients: make(map[string]*recipientSet),
		logger:     config.GetLogger(),
	}
}

// set returns the recipient's channel set, creating it on first use. Sets are
// never deleted: the identity space is bounded by the user table, and keeping
// them avoids a register/unregister race on a vanishing map entry.
func (h *Hub) set(identity string) *recipientSet {
	h.mu.RLock()
	rs := h.recipients[identity]
	h.mu.RUnlock()
	if rs != nil {
		return rs
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	rs = h.recipients[identity]
	if rs == nil {
		rs = &recipientSet{}
		h.recipients[identity] = rs
	}
	return rs
}

func (h *Hub) Register(identity string, ch Channel) {
	rs := h.set(identity)
	rs.mu.Lock()
	rs.channels = append(rs.channels, ch)
	rs.mu.Unlock()
}

// Unregister removes the channel from the recipient's set. Once it returns,
// no subsequent Publish will write to ch.
func (h *Hub) Unregister(identity string, ch Channel) {
	rs := h.set(identity)
	rs.mu.Lock()
	kept := rs.channels[:0]
	for _, c := range rs.channels {
		if c != ch {
			kept = append(kept, c)
		}
	}
	rs.channels = kept
	rs.mu.Unlock()
}

// Publish delivers the notification to every live channel of its recipient.
// Each delivery is independent: one dead channel never blocks the others and
// never surfaces an error to the publisher. Dead channels are pruned.
func (h *Hub) Publish(notification *models.Notification) {
	h.mu.RLock()
	rs := h.recipients[notification.UserId]
	h.mu.RUnlock()
	if rs == nil {
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	var dead []Channel
	for _, ch := range rs.channels {
		if err := ch.Send(notification); err != nil {
			config.LogError(h.logger, "notifier", "Publish", "ch.Send", notification.UserId, err)
			dead = append(dead, ch)
		}
	}
	if len(dead) == 0 {
		return
	}

	kept := rs.channels[:0]
	for _, ch := range rs.channels {
		alive := true
		for _, d := range dead {
			if ch == d {
				alive = false
				break
			}
		}
		if alive {
			kept = append(kept, ch)
		}
	}
	rs.channels = kept
	for _, ch := range dead {
		ch.Close()
	}
}

// ChannelCount reports the live channels for an identity (used by health and
// tests).
func (h *Hub) ChannelCount(identity string) int {
	h.mu.RLock()
	rs := h.recipients[identity]
	h.mu.RUnlock()
	if rs == nil {
		return 0
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.channels)
}
