package data

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParseChatStreamEntry decodes the string-typed field map that XRead returns
// back into a ChatEvent.
func ParseChatStreamEntry(values map[string]interface{}) (ChatEvent, error) {
	var ev ChatEvent
	get := func(key string) string {
		s, _ := values[key].(string)
		return s
	}
	id, err := strconv.ParseUint(get("id"), 10, 64)
	if err != nil {
		return ev, fmt.Errorf("chat stream entry: bad id %q", get("id"))
	}
	meetingID, err := strconv.ParseUint(get("meeting_id"), 10, 64)
	if err != nil {
		return ev, fmt.Errorf("chat stream entry: bad meeting_id %q", get("meeting_id"))
	}
	senderID, err := strconv.ParseUint(get("sender_id"), 10, 64)
	if err != nil {
		return ev, fmt.Errorf("chat stream entry: bad sender_id %q", get("sender_id"))
	}
	ev.ID = id
	ev.MeetingID = meetingID
	ev.SenderID = senderID
	ev.Sender = get("sender")
	ev.Message = get("message")
	ev.ImageURL = get("image_url")
	ev.Time, _ = strconv.ParseInt(get("time"), 10, 64)
	return ev, nil
}

// ChatNotifications builds the notification rows a chat event produces: one
// per participant except the author.
func ChatNotifications(ev ChatEvent, participants []types.MeetingParticipant) []types.Notification {
	now := time.Now()
	recipients := lo.Filter(participants, func(p types.MeetingParticipant, _ int) bool {
		return p.UserID != ev.SenderID
	})
	return lo.Map(recipients, func(p types.MeetingParticipant, _ int) types.Notification {
		meetingID, chatID := ev.MeetingID, ev.ID
		return types.Notification{
			UserID:    p.UserID,
			Type:      "chat",
			Title:     fmt.Sprintf("%s님의 새 메시지", ev.Sender),
			Body:      ev.Message,
			MeetingID: &meetingID,
			ChatID:    &chatID,
			CreatedAt: now,
		}
	})
}

// NotifierService consumes the chat stream and writes notification rows for
// every participant except the sender. The unique (user, chat) index plus
// insert-ignore makes delivery exactly-once even if the stream is replayed.
func NotifierService(ctx context.Context, db *gorm.DB, rdb *redis.Client) {
	lastID := "$"

	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{streamChats, lastID},
				Count:   10,
				Block:   5 * time.Second,
			}).Result()

			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Printf("notifier: error reading stream: %v", err)
				}
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					lastID = msg.ID

					ev, err := ParseChatStreamEntry(msg.Values)
					if err != nil {
						log.Printf("notifier: %v", err)
						continue
					}

					var participants []types.MeetingParticipant
					if err := db.Where("meeting_id = ?", ev.MeetingID).Find(&participants).Error; err != nil {
						log.Printf("notifier: load participants for meeting %d: %v", ev.MeetingID, err)
						continue
					}

					rows := ChatNotifications(ev, participants)
					if len(rows) == 0 {
						continue
					}
					if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
						log.Printf("notifier: create notifications for chat %d: %v", ev.ID, err)
					}
				}
			}
		}
	}
}
