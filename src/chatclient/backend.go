package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gunhee-b/community-web-sub001/src/chatsync"
)

// HTTPBackend implements chatsync.Backend against the community API over
// REST plus a websocket push channel.
type HTTPBackend struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// do issues a JSON request. Idempotent methods retry on transport errors
// and 429/5xx; POSTs go out once so a send is never duplicated.
func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out any) error {
	if method == http.MethodPost {
		_, err := b.doOnce(ctx, method, path, body, out)
		return err
	}
	return withRetry(ctx, func() (int, error) {
		return b.doOnce(ctx, method, path, body, out)
	})
}

func (b *HTTPBackend) doOnce(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Err string `json:"err"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Err == "" {
			apiErr.Err = resp.Status
		}
		return resp.StatusCode, fmt.Errorf("%s %s: %s", method, path, apiErr.Err)
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

type wireMessage struct {
	ID        uint64    `json:"id"`
	SenderID  uint64    `json:"senderId"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m wireMessage) toMessage() chatsync.Message {
	return chatsync.Message{
		ID:       m.ID,
		SenderID: m.SenderID,
		Sender:   m.Sender,
		Text:     m.Message,
		ImageURL: m.ImageURL,
		SentAt:   m.CreatedAt,
	}
}

func (b *HTTPBackend) FetchMessages(ctx context.Context, meetingID uint64) ([]chatsync.Message, error) {
	var resp struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("/v1/meetings/%d/chats", meetingID), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]chatsync.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, m.toMessage())
	}
	return out, nil
}

// Subscribe dials the websocket push channel. The returned stop func closes
// the socket; it is safe to call more than once.
func (b *HTTPBackend) Subscribe(ctx context.Context, meetingID uint64) (<-chan chatsync.Message, func(), error) {
	wsURL := strings.Replace(b.baseURL, "http", "ws", 1) +
		fmt.Sprintf("/v1/meetings/%d/chats/ws?token=%s", meetingID, b.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan chatsync.Message, 16)
	var once sync.Once
	stop := func() {
		once.Do(func() { conn.Close() })
	}

	go func() {
		defer close(events)
		defer stop()
		for {
			var ev struct {
				ID       uint64 `json:"id"`
				SenderID uint64 `json:"senderId"`
				Sender   string `json:"sender"`
				Message  string `json:"message"`
				ImageURL string `json:"imageUrl"`
				Time     int64  `json:"time"`
			}
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			msg := chatsync.Message{
				ID:       ev.ID,
				SenderID: ev.SenderID,
				Sender:   ev.Sender,
				Text:     ev.Message,
				ImageURL: ev.ImageURL,
				SentAt:   time.Unix(ev.Time, 0),
			}
			select {
			case events <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, stop, nil
}

func (b *HTTPBackend) SendMessage(ctx context.Context, meetingID uint64, text, imageURL string) error {
	body := map[string]string{"message": text, "imageUrl": imageURL}
	return b.do(ctx, http.MethodPost, fmt.Sprintf("/v1/meetings/%d/chats", meetingID), body, nil)
}

func (b *HTTPBackend) UploadImage(ctx context.Context, meetingID uint64, filename string, blob []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(blob); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/meetings/%d/chats/image", b.baseURL, meetingID), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload image: %s", resp.Status)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (b *HTTPBackend) SetTyping(ctx context.Context, meetingID uint64) error {
	return b.do(ctx, http.MethodPut, fmt.Sprintf("/v1/meetings/%d/typing", meetingID), nil, nil)
}

func (b *HTTPBackend) ClearTyping(ctx context.Context, meetingID uint64) error {
	return b.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/meetings/%d/typing", meetingID), nil, nil)
}

func (b *HTTPBackend) ListTyping(ctx context.Context, meetingID uint64) ([]chatsync.TypingUser, error) {
	var resp struct {
		Typing []struct {
			UserID    uint64    `json:"userId"`
			Nickname  string    `json:"nickname"`
			UpdatedAt time.Time `json:"updatedAt"`
		} `json:"typing"`
	}
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("/v1/meetings/%d/typing", meetingID), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]chatsync.TypingUser, 0, len(resp.Typing))
	for _, t := range resp.Typing {
		out = append(out, chatsync.TypingUser{UserID: t.UserID, Nickname: t.Nickname, UpdatedAt: t.UpdatedAt})
	}
	return out, nil
}

// MarkRead calls the server-side procedure and surfaces an envelope failure
// as an error.
func (b *HTTPBackend) MarkRead(ctx context.Context, meetingID uint64) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := b.do(ctx, http.MethodPost, fmt.Sprintf("/v1/meetings/%d/chats/read", meetingID), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("mark read: %s", resp.Error)
	}
	return nil
}

func (b *HTTPBackend) ListReceipts(ctx context.Context, meetingID uint64) ([]chatsync.Receipt, error) {
	var resp struct {
		Receipts []struct {
			UserID uint64    `json:"userId"`
			ChatID uint64    `json:"chatId"`
			ReadAt time.Time `json:"readAt"`
		} `json:"receipts"`
	}
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("/v1/meetings/%d/chats/receipts", meetingID), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]chatsync.Receipt, 0, len(resp.Receipts))
	for _, r := range resp.Receipts {
		out = append(out, chatsync.Receipt{UserID: r.UserID, ChatID: r.ChatID, ReadAt: r.ReadAt})
	}
	return out, nil
}

func (b *HTTPBackend) ResolveSenderName(ctx context.Context, userID uint64) (string, error) {
	var resp struct {
		Nickname string `json:"nickname"`
	}
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("/v1/profiles/%d", userID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Nickname, nil
}
