package webserver

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gunhee-b/community-web-sub001/src/api/data"
	"github.com/Gunhee-b/community-web-sub001/src/api/realtime"
	"github.com/Gunhee-b/community-web-sub001/src/api/storage"
	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

// imagePlaceholder replaces an empty caption on image messages.
const imagePlaceholder = "사진을 보냈습니다"

const (
	maxChatImageBytes   = 10 << 20
	maxChatMessageRunes = 2000
)

type Chats struct {
	db        *gorm.DB
	rdb       *redis.Client
	hub       *realtime.Hub
	uploader  *storage.Uploader
	sanitizer *bluemonday.Policy
	upgrader  websocket.Upgrader
}

func NewChats(db *gorm.DB, rdb *redis.Client, hub *realtime.Hub, up *storage.Uploader) *Chats {
	return &Chats{
		db:        db,
		rdb:       rdb,
		hub:       hub,
		uploader:  up,
		sanitizer: newBodySanitizer(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced on the HTTP routes; the socket itself
			// carries no credentials beyond the verified JWT.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// List returns the full ordered message history for a meeting. No pagination:
// clients replace their in-memory list wholesale on every fetch.
func (h *Chats) List(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if !isParticipant(h.db, meetingID, currentUser(c)) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자만 볼 수 있습니다"})
		return
	}

	type chatRow struct {
		types.MeetingChat
		Nickname string
	}
	var rows []chatRow
	h.db.Table("meeting_chats").
		Select("meeting_chats.*, profiles.nickname").
		Joins("LEFT JOIN profiles ON profiles.user_id = meeting_chats.sender_id").
		Where("meeting_chats.meeting_id = ?", meetingID).
		Order("meeting_chats.created_at asc, meeting_chats.id asc").
		Scan(&rows)

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"senderId":  row.SenderID,
			"sender":    row.Nickname,
			"message":   row.Message,
			"imageUrl":  row.ImageURL,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *Chats) Create(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	userID := currentUser(c)
	if !isParticipant(h.db, meetingID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자만 보낼 수 있습니다"})
		return
	}

	var req struct {
		Message  string `json:"message"`
		ImageURL string `json:"imageUrl" binding:"max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	// The length bound applies to the stored text, so it is checked after
	// sanitizing: entity escaping can grow the message.
	message := h.sanitizer.Sanitize(req.Message)
	if !utf8.ValidString(message) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
		return
	}
	if utf8.RuneCountInString(message) > maxChatMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"err": "메시지는 2000자 이하여야 합니다"})
		return
	}
	if message == "" {
		if req.ImageURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"err": "메시지를 입력해주세요"})
			return
		}
		message = imagePlaceholder
	}

	chat := types.MeetingChat{
		MeetingID: meetingID,
		SenderID:  userID,
		Message:   message,
		ImageURL:  req.ImageURL,
		CreatedAt: time.Now(),
	}
	if err := h.db.Create(&chat).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	// Sending clears the sender's typing marker.
	h.db.Where("meeting_id = ? AND user_id = ?", meetingID, userID).Delete(&types.MeetingTypingIndicator{})

	ev := data.ChatEvent{
		ID:        chat.ID,
		MeetingID: meetingID,
		SenderID:  userID,
		Sender:    nickname(h.db, userID),
		Message:   chat.Message,
		ImageURL:  chat.ImageURL,
		Time:      chat.CreatedAt.Unix(),
	}
	if err := data.PublishChatEvent(c, h.rdb, ev); err != nil {
		// Delivery degrades to the clients' polling fallback.
		log.Printf("chats: publish event for chat %d: %v", chat.ID, err)
	}

	c.JSON(http.StatusCreated, gin.H{"id": chat.ID})
}

// UploadImage stores an attachment before its message row exists. The object
// key is namespaced by meeting with a randomized filename.
func (h *Chats) UploadImage(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if !isParticipant(h.db, meetingID, currentUser(c)) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자만 보낼 수 있습니다"})
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if fh.Size > maxChatImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"err": "이미지는 10MB 이하여야 합니다"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	defer f.Close()
	blob, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	key := storage.ChatImageKey(meetingID, fh.Filename)
	url, err := h.uploader.Upload(c, key, fh.Header.Get("Content-Type"), blob)
	if err != nil {
		log.Printf("chats: image upload for meeting %d: %v", meetingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "이미지 업로드에 실패했습니다"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Chats) SetTyping(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	userID := currentUser(c)
	if !isParticipant(h.db, meetingID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자가 아닙니다"})
		return
	}

	row := types.MeetingTypingIndicator{MeetingID: meetingID, UserID: userID, UpdatedAt: time.Now()}
	err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&row).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Chats) ClearTyping(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	h.db.Where("meeting_id = ? AND user_id = ?", meetingID, currentUser(c)).
		Delete(&types.MeetingTypingIndicator{})
	c.Status(http.StatusNoContent)
}

// ListTyping returns who is typing right now. Rows older than the staleness
// bound are excluded, so a crashed client disappears within that bound.
func (h *Chats) ListTyping(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if !isParticipant(h.db, meetingID, currentUser(c)) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자가 아닙니다"})
		return
	}

	cutoff := time.Now().Add(-data.TypingStaleAfter)

	type typingRow struct {
		types.MeetingTypingIndicator
		Nickname string
	}
	var rows []typingRow
	h.db.Table("meeting_typing_indicators").
		Select("meeting_typing_indicators.*, profiles.nickname").
		Joins("LEFT JOIN profiles ON profiles.user_id = meeting_typing_indicators.user_id").
		Where("meeting_typing_indicators.meeting_id = ? AND meeting_typing_indicators.updated_at >= ?", meetingID, cutoff).
		Scan(&rows)

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"userId":    row.UserID,
			"nickname":  row.Nickname,
			"updatedAt": row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"typing": out})
}

// MarkRead is the single server-side procedure that marks every message in
// the meeting read for the caller. The client keeps no bookkeeping of which
// message IDs were covered; it refetches the receipt rows afterwards.
func (h *Chats) MarkRead(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	userID := currentUser(c)
	if !isParticipant(h.db, meetingID, userID) {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "모임 참여자가 아닙니다"})
		return
	}

	res := h.db.Exec(`
		INSERT IGNORE INTO meeting_chat_read_receipts (meeting_id, user_id, chat_id, read_at)
		SELECT meeting_id, ?, id, ? FROM meeting_chats WHERE meeting_id = ?`,
		userID, time.Now(), meetingID)
	if res.Error != nil {
		log.Printf("chats: mark read for meeting %d user %d: %v", meetingID, userID, res.Error)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "읽음 처리에 실패했습니다"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": res.RowsAffected})
}

func (h *Chats) ListReceipts(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if !isParticipant(h.db, meetingID, currentUser(c)) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자만 볼 수 있습니다"})
		return
	}

	var receipts []types.MeetingChatReadReceipt
	h.db.Where("meeting_id = ?", meetingID).Find(&receipts)

	out := make([]gin.H, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, gin.H{
			"userId": r.UserID,
			"chatId": r.ChatID,
			"readAt": r.ReadAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"receipts": out})
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// Subscribe upgrades to a websocket and pushes this meeting's chat insert
// events until the peer goes away. Subscribers that cannot keep up lose
// events; the polling path is the consistency net.
func (h *Chats) Subscribe(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if !isParticipant(h.db, meetingID, currentUser(c)) {
		c.JSON(http.StatusForbidden, gin.H{"err": "모임 참여자만 구독할 수 있습니다"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("chats: websocket upgrade for meeting %d: %v", meetingID, err)
		return
	}

	events, cancel := h.hub.Subscribe(meetingID)
	defer cancel()
	defer conn.Close()

	// Reader exists only to observe the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
