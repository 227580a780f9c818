package data

import (
	"testing"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatStreamEntry(t *testing.T) {
	ev, err := ParseChatStreamEntry(map[string]interface{}{
		"id":         "42",
		"meeting_id": "7",
		"sender_id":  "3",
		"sender":     "민수",
		"message":    "안녕하세요",
		"image_url":  "",
		"time":       "1756600000",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ev.ID)
	assert.Equal(t, uint64(7), ev.MeetingID)
	assert.Equal(t, uint64(3), ev.SenderID)
	assert.Equal(t, "민수", ev.Sender)
	assert.Equal(t, "안녕하세요", ev.Message)
	assert.Equal(t, int64(1756600000), ev.Time)
}

func TestParseChatStreamEntryBadFields(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"missing id":     {"meeting_id": "7", "sender_id": "3"},
		"non-numeric id": {"id": "abc", "meeting_id": "7", "sender_id": "3"},
		"bad meeting":    {"id": "1", "meeting_id": "", "sender_id": "3"},
		"bad sender":     {"id": "1", "meeting_id": "7", "sender_id": "x"},
	}
	for name, values := range cases {
		_, err := ParseChatStreamEntry(values)
		assert.Error(t, err, name)
	}
}

func TestChatNotificationsSkipsSender(t *testing.T) {
	ev := ChatEvent{ID: 5, MeetingID: 2, SenderID: 10, Sender: "지현", Message: "사진을 보냈습니다"}
	participants := []types.MeetingParticipant{
		{MeetingID: 2, UserID: 10},
		{MeetingID: 2, UserID: 11},
		{MeetingID: 2, UserID: 12},
	}

	rows := ChatNotifications(ev, participants)
	require.Len(t, rows, 2)

	for _, n := range rows {
		assert.NotEqual(t, uint64(10), n.UserID)
		assert.Equal(t, "chat", n.Type)
		assert.Equal(t, "지현님의 새 메시지", n.Title)
		assert.Equal(t, ev.Message, n.Body)
		require.NotNil(t, n.MeetingID)
		require.NotNil(t, n.ChatID)
		assert.Equal(t, uint64(2), *n.MeetingID)
		assert.Equal(t, uint64(5), *n.ChatID)
	}
	assert.Equal(t, uint64(11), rows[0].UserID)
	assert.Equal(t, uint64(12), rows[1].UserID)
}

func TestChatNotificationsSenderAlone(t *testing.T) {
	ev := ChatEvent{ID: 5, MeetingID: 2, SenderID: 10}
	rows := ChatNotifications(ev, []types.MeetingParticipant{{MeetingID: 2, UserID: 10}})
	assert.Empty(t, rows)
}
