package chatsync

import (
	"context"
	"sync"
	"time"
)

// Syncer owns the synchronized view of one meeting's chat for one user.
// State is private to the instance; all shared state lives on the server.
type Syncer struct {
	backend   Backend
	meetingID uint64
	selfID    uint64
	opts      Options

	cancel  context.CancelFunc
	stopSub func()
	wg      sync.WaitGroup

	// fetchMu serializes full refetches so a slow poll cannot finish after
	// a newer realtime-triggered fetch and publish stale state.
	fetchMu sync.Mutex

	mu       sync.Mutex
	messages []Message
	known    map[uint64]struct{}
	receipts map[uint64][]Receipt
	closed   bool

	typing *typingSet

	idleMu    sync.Mutex
	idleTimer *time.Timer
}

// New builds a Syncer for one meeting. Call Start to begin syncing.
func New(backend Backend, meetingID, selfID uint64, opts Options) *Syncer {
	return &Syncer{
		backend:   backend,
		meetingID: meetingID,
		selfID:    selfID,
		opts:      opts.withDefaults(),
		known:     make(map[uint64]struct{}),
		receipts:  make(map[uint64][]Receipt),
		typing:    newTypingSet(),
	}
}

// Start seeds the message list, opens the push subscription and launches the
// polling loop. Existing history never notifies; only messages discovered
// after Start do. A failed subscription is not retried; polling alone then
// bounds staleness by the poll interval.
func (s *Syncer) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	initial, err := s.backend.FetchMessages(runCtx, s.meetingID)
	if err != nil {
		cancel()
		return err
	}
	s.apply(initial, false)

	events, stop, err := s.backend.Subscribe(runCtx, s.meetingID)
	if err != nil {
		s.opts.Logf("chatsync: subscribe failed, relying on polling: %v", err)
	} else {
		s.stopSub = stop
		s.wg.Add(1)
		go s.consumeEvents(runCtx, events)
	}

	s.wg.Add(1)
	go s.pollLoop(runCtx)
	return nil
}

func (s *Syncer) consumeEvents(ctx context.Context, events <-chan Message) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			// The push payload carries only the row; the display name is a
			// separate round-trip.
			if name, err := s.backend.ResolveSenderName(ctx, msg.SenderID); err == nil && name != "" {
				msg.Sender = name
			}
			s.noteMessage(msg)
			s.refetch(ctx)
		}
	}
}

func (s *Syncer) pollLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refetch(ctx)
		}
	}
}

// refetch replaces the in-memory list with the server's full history.
// Read failures log and keep the previous state.
func (s *Syncer) refetch(ctx context.Context) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	list, err := s.backend.FetchMessages(ctx, s.meetingID)
	if err != nil {
		s.opts.Logf("chatsync: fetch messages: %v", err)
		return
	}
	s.apply(list, true)
}

// apply is the single reconciliation step both delivery paths go through.
// Newly discovered foreign messages notify exactly once, keyed by message ID.
func (s *Syncer) apply(list []Message, notify bool) {
	var pending []Notification

	s.mu.Lock()
	for _, m := range list {
		if _, ok := s.known[m.ID]; ok {
			continue
		}
		s.known[m.ID] = struct{}{}
		if notify && m.SenderID != s.selfID && s.opts.Notify != nil {
			pending = append(pending, Notification{
				MessageID: m.ID,
				Title:     m.Sender + "님의 새 메시지",
				Body:      m.Text,
			})
		}
	}
	s.messages = list
	s.mu.Unlock()

	for _, n := range pending {
		s.opts.Notify(n)
	}
}

// noteMessage registers a push-delivered message without touching the list;
// the follow-up refetch supplies the authoritative ordering.
func (s *Syncer) noteMessage(m Message) {
	s.mu.Lock()
	_, ok := s.known[m.ID]
	if !ok {
		s.known[m.ID] = struct{}{}
	}
	notify := !ok && m.SenderID != s.selfID && s.opts.Notify != nil
	s.mu.Unlock()

	if notify {
		s.opts.Notify(Notification{
			MessageID: m.ID,
			Title:     m.Sender + "님의 새 메시지",
			Body:      m.Text,
		})
	}
}

// Messages returns a copy of the current list.
func (s *Syncer) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SendMessage uploads any attachments and inserts the message rows. The
// attachment-count check runs before any network call, and an upload failure
// aborts the whole submission. With multiple images, the caption rides the
// first message and the rest carry the placeholder.
func (s *Syncer) SendMessage(ctx context.Context, text string, images ...Image) error {
	if s.isClosed() {
		return ErrClosed
	}
	if len(images) > MaxImagesPerMessage {
		return ErrTooManyImages
	}
	if text == "" && len(images) == 0 {
		return ErrEmptyMessage
	}

	if len(images) == 0 {
		if err := s.backend.SendMessage(ctx, s.meetingID, text, ""); err != nil {
			return err
		}
	} else {
		for i, img := range images {
			url, err := s.backend.UploadImage(ctx, s.meetingID, img.Filename, img.Blob)
			if err != nil {
				return err
			}
			caption := ""
			if i == 0 {
				caption = text
			}
			if caption == "" {
				caption = ImagePlaceholder
			}
			if err := s.backend.SendMessage(ctx, s.meetingID, caption, url); err != nil {
				return err
			}
		}
	}

	s.refetch(ctx)
	return nil
}

// Typed records a keystroke: the server-side marker is refreshed and the
// idle timer is rewound. After TypingIdle without another keystroke the
// marker is cleared.
func (s *Syncer) Typed(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.backend.SetTyping(ctx, s.meetingID); err != nil {
		return err
	}

	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.opts.TypingIdle, func() {
		clearCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.backend.ClearTyping(clearCtx, s.meetingID); err != nil {
			s.opts.Logf("chatsync: clear typing: %v", err)
		}
		s.typing.Drop(s.selfID)
	})
	return nil
}

// TypingUsers merges the server's marker rows into the local expiring set
// and returns everyone (except self) typed within TypingTTL. A stale row
// from a crashed client ages out of view within that bound.
func (s *Syncer) TypingUsers(ctx context.Context) []TypingUser {
	rows, err := s.backend.ListTyping(ctx, s.meetingID)
	if err != nil {
		s.opts.Logf("chatsync: list typing: %v", err)
	}
	for _, u := range rows {
		s.typing.Observe(u)
	}

	var out []TypingUser
	for _, u := range s.typing.Live(time.Now(), s.opts.TypingTTL) {
		if u.UserID != s.selfID {
			out = append(out, u)
		}
	}
	return out
}

// MarkRead invokes the single server-side procedure covering every message
// in the meeting, then refreshes the receipt rows used for "seen by".
func (s *Syncer) MarkRead(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.backend.MarkRead(ctx, s.meetingID); err != nil {
		return err
	}
	s.RefreshReceipts(ctx)
	return nil
}

// RefreshReceipts refetches the receipt rows. Failures keep the old map.
func (s *Syncer) RefreshReceipts(ctx context.Context) {
	rows, err := s.backend.ListReceipts(ctx, s.meetingID)
	if err != nil {
		s.opts.Logf("chatsync: list receipts: %v", err)
		return
	}
	byChat := make(map[uint64][]Receipt)
	for _, r := range rows {
		byChat[r.ChatID] = append(byChat[r.ChatID], r)
	}
	s.mu.Lock()
	s.receipts = byChat
	s.mu.Unlock()
}

// SeenBy returns who has read a message.
func (s *Syncer) SeenBy(chatID uint64) []Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Receipt, len(s.receipts[chatID]))
	copy(out, s.receipts[chatID])
	return out
}

func (s *Syncer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the instance down: subscription, poll ticker and idle timer
// stop, and the caller's own typing marker is deleted. Apart from that
// deletion no further network calls are made.
func (s *Syncer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.stopSub != nil {
		s.stopSub()
	}

	s.idleMu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.idleMu.Unlock()

	s.wg.Wait()

	clearCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.backend.ClearTyping(clearCtx, s.meetingID)
	s.typing.Drop(s.selfID)
	return err
}
