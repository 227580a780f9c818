// Package chatsync keeps a client-visible list of meeting chat messages
// approximately in sync with the server. A realtime subscription is the
// primary push channel; a fixed-interval poll is the safety net that treats
// the channel as allowed to fail silently. Both paths funnel into the same
// reconciliation step, so duplicate delivery produces no duplicate
// notifications and a late poll cannot clobber newer state with stale state.
package chatsync

import (
	"context"
	"errors"
	"time"
)

// MaxImagesPerMessage bounds attachments on a single send. The check runs
// before any network call.
const MaxImagesPerMessage = 2

// ImagePlaceholder is substituted when an image message carries no caption.
const ImagePlaceholder = "사진을 보냈습니다"

var (
	ErrTooManyImages = errors.New("chatsync: too many images attached")
	ErrEmptyMessage  = errors.New("chatsync: empty message")
	ErrClosed        = errors.New("chatsync: syncer closed")
)

// Message is one chat entry as the client sees it.
type Message struct {
	ID       uint64
	SenderID uint64
	Sender   string
	Text     string
	ImageURL string
	SentAt   time.Time
}

// TypingUser is an ephemeral "currently typing" marker.
type TypingUser struct {
	UserID    uint64
	Nickname  string
	UpdatedAt time.Time
}

// Receipt records that a user has read a message.
type Receipt struct {
	UserID uint64
	ChatID uint64
	ReadAt time.Time
}

// Image is a pending attachment.
type Image struct {
	Filename string
	Blob     []byte
}

// Notification is handed to the Notify callback exactly once per foreign
// message, whichever path discovered it first.
type Notification struct {
	MessageID uint64
	Title     string
	Body      string
}

// Backend abstracts the server the syncer talks to. Implementations wrap a
// concrete transport; tests substitute a fake.
type Backend interface {
	// FetchMessages returns the full ordered history, ascending by creation
	// time. There is no delta variant; callers replace state wholesale.
	FetchMessages(ctx context.Context, meetingID uint64) ([]Message, error)

	// Subscribe opens the push channel for one meeting. The stop func must
	// be safe to call more than once. A dropped channel is not retried;
	// polling covers the gap.
	Subscribe(ctx context.Context, meetingID uint64) (<-chan Message, func(), error)

	SendMessage(ctx context.Context, meetingID uint64, text, imageURL string) error
	UploadImage(ctx context.Context, meetingID uint64, filename string, blob []byte) (string, error)

	SetTyping(ctx context.Context, meetingID uint64) error
	ClearTyping(ctx context.Context, meetingID uint64) error
	ListTyping(ctx context.Context, meetingID uint64) ([]TypingUser, error)

	MarkRead(ctx context.Context, meetingID uint64) error
	ListReceipts(ctx context.Context, meetingID uint64) ([]Receipt, error)

	// ResolveSenderName resolves a display name when the push payload does
	// not carry one.
	ResolveSenderName(ctx context.Context, userID uint64) (string, error)
}

// Options tunes a Syncer. Zero values take the defaults.
type Options struct {
	// PollInterval is the safety-net reconciliation period. Default 5s.
	PollInterval time.Duration
	// TypingTTL is the age past which a typing marker is ignored on read.
	// Default 10s.
	TypingTTL time.Duration
	// TypingIdle is how long after the last keystroke the local typing
	// marker is cleared. Default 3s.
	TypingIdle time.Duration
	// Notify receives one callback per newly discovered foreign message.
	Notify func(Notification)
	// Logf receives non-fatal errors from the read paths. Defaults to a
	// no-op.
	Logf func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.TypingTTL <= 0 {
		o.TypingTTL = 10 * time.Second
	}
	if o.TypingIdle <= 0 {
		o.TypingIdle = 3 * time.Second
	}
	if o.Logf == nil {
		o.Logf = func(string, ...any) {}
	}
	return o
}
