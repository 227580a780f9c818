package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refreshPrefix = "refresh:"
	streamChats   = "community.chats"
	chatChanFmt   = "meeting_chats:%d"

	refreshTTL = 14 * 24 * time.Hour
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

func SetRefreshToken(ctx context.Context, rdb *redis.Client, token string, userID uint64) error {
	return rdb.Set(ctx, refreshPrefix+token, userID, refreshTTL).Err()
}

func GetAndDelRefreshToken(ctx context.Context, rdb *redis.Client, token string) (uint64, error) {
	v, err := rdb.GetDel(ctx, refreshPrefix+token).Uint64()
	if err != nil {
		return 0, err
	}
	return v, nil
}

// ChatEvent is the row-change payload pushed to subscribers when a chat
// message is inserted.
type ChatEvent struct {
	ID        uint64 `json:"id"`
	MeetingID uint64 `json:"meetingId"`
	SenderID  uint64 `json:"senderId"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Time      int64  `json:"time"`
}

func ChatChannel(meetingID uint64) string {
	return fmt.Sprintf(chatChanFmt, meetingID)
}

// PublishChatEvent fans a new chat message out twice: to the per-meeting
// pub/sub channel consumed by the websocket hub, and to the durable stream
// consumed by the notifier.
func PublishChatEvent(ctx context.Context, rdb *redis.Client, ev ChatEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := rdb.Publish(ctx, ChatChannel(ev.MeetingID), raw).Err(); err != nil {
		return err
	}
	_, err = rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamChats,
		Values: map[string]any{
			"id":         ev.ID,
			"meeting_id": ev.MeetingID,
			"sender_id":  ev.SenderID,
			"sender":     ev.Sender,
			"message":    ev.Message,
			"image_url":  ev.ImageURL,
			"time":       ev.Time,
		},
	}).Result()
	return err
}
