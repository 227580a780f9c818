package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

type Notifications struct{ db *gorm.DB }

func NewNotifications(db *gorm.DB) Notifications { return Notifications{db: db} }

func (n Notifications) List(c *gin.Context) {
	var rows []types.Notification
	n.db.Where("user_id = ?", currentUser(c)).Order("created_at desc").Limit(100).Find(&rows)

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"type":      row.Type,
			"title":     row.Title,
			"body":      row.Body,
			"meetingId": row.MeetingID,
			"read":      row.Read,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (n Notifications) MarkRead(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	res := n.db.Model(&types.Notification{}).
		Where("id = ? AND user_id = ?", id, currentUser(c)).
		Update("read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"err": "알림을 찾을 수 없습니다"})
		return
	}
	c.Status(http.StatusNoContent)
}
