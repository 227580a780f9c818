package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestBroadcastReachesOnlyMeetingSubscribers(t *testing.T) {
	h := NewHub()

	a, cancelA := h.Subscribe(1)
	defer cancelA()
	b, cancelB := h.Subscribe(1)
	defer cancelB()
	other, cancelOther := h.Subscribe(2)
	defer cancelOther()

	h.Broadcast(1, []byte("hello"))

	assert.Equal(t, []byte("hello"), recv(t, a))
	assert.Equal(t, []byte("hello"), recv(t, b))
	select {
	case <-other:
		t.Fatal("meeting 2 subscriber received meeting 1 payload")
	default:
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe(1)
	require.Equal(t, 1, h.Subscribers(1))

	cancel()
	assert.Equal(t, 0, h.Subscribers(1))

	// Cancel is idempotent.
	cancel()
	assert.Equal(t, 0, h.Subscribers(1))

	// Broadcasting to a meeting with no subscribers is a no-op.
	h.Broadcast(1, []byte("nobody home"))
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Broadcast(1, []byte{byte(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	// The buffer holds at most subscriberBuffer payloads; the rest dropped.
	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, count)
}

func TestMeetingFromChannel(t *testing.T) {
	id, err := meetingFromChannel("meeting_chats:42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = meetingFromChannel("meeting_chats:not-a-number")
	assert.Error(t, err)
}
