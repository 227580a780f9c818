package webserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

type Votes struct{ db *gorm.DB }

func NewVotes(db *gorm.DB) Votes { return Votes{db: db} }

// openPeriod returns the voting period currently accepting votes.
func (v Votes) openPeriod() (types.VotingPeriod, error) {
	var period types.VotingPeriod
	now := time.Now()
	err := v.db.First(&period, "status = ? AND opens_at <= ? AND closes_at > ?", "open", now, now).Error
	return period, err
}

func (v Votes) Nominate(c *gin.Context) {
	var req struct {
		AnswerID uint64 `json:"answerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	period, err := v.openPeriod()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "투표 기간이 아닙니다"})
		return
	}

	var answer types.QuestionAnswer
	if err := v.db.First(&answer, "id = ?", req.AnswerID).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "답변을 찾을 수 없습니다"})
		return
	}

	nomination := types.PostNomination{
		PeriodID:    period.ID,
		AnswerID:    req.AnswerID,
		NominatedBy: currentUser(c),
		CreatedAt:   time.Now(),
	}
	if err := v.db.Create(&nomination).Error; err != nil {
		// Unique (period, answer) index: already nominated this round.
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "이미 추천된 답변입니다"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": nomination.ID})
}

func (v Votes) Cast(c *gin.Context) {
	var req struct {
		NominationID uint64 `json:"nominationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	period, err := v.openPeriod()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "투표 기간이 아닙니다"})
		return
	}

	var nomination types.PostNomination
	if err := v.db.First(&nomination, "id = ? AND period_id = ?", req.NominationID, period.ID).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "후보를 찾을 수 없습니다"})
		return
	}

	// Re-cast is delete-then-insert in one transaction so a failed insert
	// cannot leave the voter with no vote at all.
	voterID := currentUser(c)
	err = v.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("period_id = ? AND voter_id = ?", period.ID, voterID).
			Delete(&types.Vote{}).Error; err != nil {
			return err
		}
		return tx.Create(&types.Vote{
			PeriodID:     period.ID,
			VoterID:      voterID,
			NominationID: req.NominationID,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (v Votes) Summary(c *gin.Context) {
	var period types.VotingPeriod
	if err := v.db.Order("opens_at desc").First(&period).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "투표 회차가 없습니다"})
		return
	}

	type agg struct {
		NominationID uint64
		Count        int
	}
	var rows []agg
	v.db.Table("votes").
		Select("nomination_id, count(*) as count").
		Where("period_id = ?", period.ID).
		Group("nomination_id").
		Scan(&rows)

	tally := make(map[uint64]int, len(rows))
	for _, r := range rows {
		tally[r.NominationID] = r.Count
	}

	var nominations []types.PostNomination
	v.db.Where("period_id = ?", period.ID).Order("created_at asc").Find(&nominations)

	out := make([]gin.H, 0, len(nominations))
	for _, n := range nominations {
		out = append(out, gin.H{
			"nominationId": n.ID,
			"answerId":     n.AnswerID,
			"votes":        tally[n.ID],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"period": gin.H{
			"id":       period.ID,
			"opensAt":  period.OpensAt,
			"closesAt": period.ClosesAt,
			"status":   period.Status,
			"winner":   period.WinnerNomination,
		},
		"nominations": out,
	})
}
