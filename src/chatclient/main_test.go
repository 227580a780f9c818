package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunhee-b/community-web-sub001/src/chatsync"
)

// stubBackend records the calls teardown must produce.
type stubBackend struct {
	clearTypingCalls atomic.Int64
}

func (b *stubBackend) FetchMessages(ctx context.Context, meetingID uint64) ([]chatsync.Message, error) {
	return nil, nil
}

func (b *stubBackend) Subscribe(ctx context.Context, meetingID uint64) (<-chan chatsync.Message, func(), error) {
	events := make(chan chatsync.Message)
	return events, func() {}, nil
}

func (b *stubBackend) SendMessage(ctx context.Context, meetingID uint64, text, imageURL string) error {
	return nil
}

func (b *stubBackend) UploadImage(ctx context.Context, meetingID uint64, filename string, blob []byte) (string, error) {
	return "", nil
}

func (b *stubBackend) SetTyping(ctx context.Context, meetingID uint64) error { return nil }

func (b *stubBackend) ClearTyping(ctx context.Context, meetingID uint64) error {
	b.clearTypingCalls.Add(1)
	return nil
}

func (b *stubBackend) ListTyping(ctx context.Context, meetingID uint64) ([]chatsync.TypingUser, error) {
	return nil, nil
}

func (b *stubBackend) MarkRead(ctx context.Context, meetingID uint64) error { return nil }

func (b *stubBackend) ListReceipts(ctx context.Context, meetingID uint64) ([]chatsync.Receipt, error) {
	return nil, nil
}

func (b *stubBackend) ResolveSenderName(ctx context.Context, userID uint64) (string, error) {
	return "", nil
}

// An interrupt must tear the syncer down, not just cancel the context:
// otherwise the typing marker outlives the process.
func TestTeardownClearsTyping(t *testing.T) {
	backend := &stubBackend{}
	syncer := chatsync.New(backend, 1, 1, chatsync.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, syncer.Start(ctx))

	teardown(cancel, syncer)

	assert.Equal(t, int64(1), backend.clearTypingCalls.Load())
	assert.ErrorIs(t, syncer.SendMessage(context.Background(), "안녕"), chatsync.ErrClosed)
}
