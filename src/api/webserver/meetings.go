package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

type Meetings struct{ db *gorm.DB }

func NewMeetings(db *gorm.DB) Meetings { return Meetings{db: db} }

func (m Meetings) Create(c *gin.Context) {
	var req struct {
		Title       string    `json:"title" binding:"required,min=1,max=128"`
		Description string    `json:"description" binding:"max=2000"`
		Location    string    `json:"location" binding:"max=256"`
		MeetAt      time.Time `json:"meetAt" binding:"required"`
		Capacity    uint16    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.MeetAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "모임 시간은 현재 이후여야 합니다"})
		return
	}

	host := currentUser(c)
	meeting := types.Meeting{
		HostID:      host,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		MeetAt:      req.MeetAt,
		Capacity:    req.Capacity,
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&meeting).Error; err != nil {
			return err
		}
		return tx.Create(&types.MeetingParticipant{
			MeetingID: meeting.ID,
			UserID:    host,
			Role:      "host",
			JoinedAt:  time.Now(),
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": meeting.ID})
}

func (m Meetings) List(c *gin.Context) {
	var meetings []types.Meeting
	m.db.Where("meet_at >= ?", time.Now().Add(-24*time.Hour)).Order("meet_at asc").Find(&meetings)

	out := make([]gin.H, 0, len(meetings))
	for _, meeting := range meetings {
		var count int64
		m.db.Model(&types.MeetingParticipant{}).Where("meeting_id = ?", meeting.ID).Count(&count)
		out = append(out, gin.H{
			"id":           meeting.ID,
			"title":        meeting.Title,
			"location":     meeting.Location,
			"meetAt":       meeting.MeetAt,
			"capacity":     meeting.Capacity,
			"participants": count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"meetings": out})
}

func (m Meetings) Get(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var meeting types.Meeting
	if err := m.db.First(&meeting, "id = ?", meetingID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "모임을 찾을 수 없습니다"})
		return
	}

	type participantRow struct {
		types.MeetingParticipant
		Nickname string
	}
	var rows []participantRow
	m.db.Table("meeting_participants").
		Select("meeting_participants.*, profiles.nickname").
		Joins("LEFT JOIN profiles ON profiles.user_id = meeting_participants.user_id").
		Where("meeting_participants.meeting_id = ?", meetingID).
		Order("meeting_participants.joined_at asc").
		Scan(&rows)

	participants := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, gin.H{
			"userId":   row.UserID,
			"nickname": row.Nickname,
			"role":     row.Role,
			"joinedAt": row.JoinedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           meeting.ID,
		"hostId":       meeting.HostID,
		"title":        meeting.Title,
		"description":  meeting.Description,
		"location":     meeting.Location,
		"meetAt":       meeting.MeetAt,
		"capacity":     meeting.Capacity,
		"participants": participants,
	})
}

func (m Meetings) Join(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var meeting types.Meeting
	if err := m.db.First(&meeting, "id = ?", meetingID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "모임을 찾을 수 없습니다"})
		return
	}

	if meeting.Capacity > 0 {
		var count int64
		m.db.Model(&types.MeetingParticipant{}).Where("meeting_id = ?", meetingID).Count(&count)
		if count >= int64(meeting.Capacity) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "정원이 가득 찼습니다"})
			return
		}
	}

	participant := types.MeetingParticipant{
		MeetingID: meetingID,
		UserID:    currentUser(c),
		Role:      "member",
		JoinedAt:  time.Now(),
	}
	if err := m.db.Create(&participant).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "이미 참여 중입니다"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m Meetings) Leave(c *gin.Context) {
	meetingID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	userID := currentUser(c)

	var meeting types.Meeting
	if err := m.db.First(&meeting, "id = ?", meetingID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "모임을 찾을 수 없습니다"})
		return
	}
	if meeting.HostID == userID {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "주최자는 모임을 나갈 수 없습니다"})
		return
	}

	res := m.db.Where("meeting_id = ? AND user_id = ?", meetingID, userID).Delete(&types.MeetingParticipant{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "참여 중인 모임이 아닙니다"})
		return
	}

	// Leaving also drops the member's typing marker, if any.
	m.db.Where("meeting_id = ? AND user_id = ?", meetingID, userID).Delete(&types.MeetingTypingIndicator{})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// isParticipant gates every chat operation.
func isParticipant(db *gorm.DB, meetingID, userID uint64) bool {
	var p types.MeetingParticipant
	return db.First(&p, "meeting_id = ? AND user_id = ?", meetingID, userID).Error == nil
}
