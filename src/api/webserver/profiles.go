package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

type Profiles struct{ db *gorm.DB }

func NewProfiles(db *gorm.DB) Profiles { return Profiles{db: db} }

func (p Profiles) Get(c *gin.Context) {
	var profile types.Profile
	if err := p.db.First(&profile, "user_id = ?", currentUser(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    profile.UserID,
		"nickname":  profile.Nickname,
		"avatarUrl": profile.AvatarURL,
		"bio":       profile.Bio,
	})
}

func (p Profiles) Update(c *gin.Context) {
	var req struct {
		Nickname  string `json:"nickname" binding:"required,min=2,max=64"`
		AvatarURL string `json:"avatarUrl" binding:"max=512"`
		Bio       string `json:"bio" binding:"max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	err := p.db.Model(&types.Profile{}).Where("user_id = ?", currentUser(c)).Updates(map[string]any{
		"nickname":   req.Nickname,
		"avatar_url": req.AvatarURL,
		"bio":        req.Bio,
	}).Error
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetByID resolves another user's public profile (display name lookups).
func (p Profiles) GetByID(c *gin.Context) {
	userID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	var profile types.Profile
	if err := p.db.First(&profile, "user_id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    profile.UserID,
		"nickname":  profile.Nickname,
		"avatarUrl": profile.AvatarURL,
	})
}

// nickname resolves a user's display name for chat payloads and embeds.
func nickname(db *gorm.DB, userID uint64) string {
	var profile types.Profile
	if err := db.First(&profile, "user_id = ?", userID).Error; err != nil {
		return "알 수 없음"
	}
	return profile.Nickname
}
