package realtime

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const subscriberBuffer = 16

// Hub fans chat events out to websocket subscribers. It does not implement
// pub/sub itself: Redis carries the events between processes, the hub only
// forwards them to the local sockets subscribed to one meeting.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]map[chan []byte]struct{})}
}

// Subscribe registers an interest in one meeting's chat events. The returned
// cancel func must be called when the subscriber goes away.
func (h *Hub) Subscribe(meetingID uint64) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if h.subs[meetingID] == nil {
		h.subs[meetingID] = make(map[chan []byte]struct{})
	}
	h.subs[meetingID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[meetingID], ch)
			if len(h.subs[meetingID]) == 0 {
				delete(h.subs, meetingID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast delivers a payload to every local subscriber of a meeting.
// Slow subscribers get dropped messages rather than blocking the hub; the
// client-side polling fallback covers the gap.
func (h *Hub) Broadcast(meetingID uint64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[meetingID] {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Subscribers reports how many sockets are attached to a meeting.
func (h *Hub) Subscribers(meetingID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[meetingID])
}

// Run bridges the Redis pub/sub channels onto the hub until ctx is done.
func (h *Hub) Run(ctx context.Context, rdb *redis.Client) {
	pubsub := rdb.PSubscribe(ctx, "meeting_chats:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			meetingID, err := meetingFromChannel(msg.Channel)
			if err != nil {
				log.Printf("realtime: ignoring channel %q: %v", msg.Channel, err)
				continue
			}
			h.Broadcast(meetingID, []byte(msg.Payload))
		}
	}
}

func meetingFromChannel(channel string) (uint64, error) {
	suffix := strings.TrimPrefix(channel, "meeting_chats:")
	return strconv.ParseUint(suffix, 10, 64)
}
