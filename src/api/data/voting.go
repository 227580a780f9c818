package data

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Winner picks the nomination with the most votes. Ties go to the earliest
// nomination ID so reruns over the same rows stay deterministic. Returns
// false when there are no votes at all.
func Winner(votes []types.Vote) (uint64, bool) {
	if len(votes) == 0 {
		return 0, false
	}
	counts := lo.CountValuesBy(votes, func(v types.Vote) uint64 { return v.NominationID })
	var winner uint64
	best := -1
	for id, n := range counts {
		if n > best || (n == best && id < winner) {
			winner = id
			best = n
		}
	}
	return winner, true
}

// VotingService closes voting periods that have passed their deadline,
// records the winning nomination and notifies the winning answer's author.
func VotingService(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	closeDue(db)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closeDue(db)
		}
	}
}

func closeDue(db *gorm.DB) {
	var periods []types.VotingPeriod
	if err := db.Where("status = ? AND closes_at <= ?", "open", time.Now()).Find(&periods).Error; err != nil {
		log.Printf("voting: list due periods: %v", err)
		return
	}

	for _, period := range periods {
		var votes []types.Vote
		if err := db.Where("period_id = ?", period.ID).Find(&votes).Error; err != nil {
			log.Printf("voting: load votes for period %d: %v", period.ID, err)
			continue
		}

		updates := map[string]any{"status": "closed", "updated_at": time.Now()}
		winnerID, ok := Winner(votes)
		if ok {
			updates["winner_nomination"] = winnerID
		}
		if err := db.Model(&types.VotingPeriod{}).Where("id = ?", period.ID).Updates(updates).Error; err != nil {
			log.Printf("voting: close period %d: %v", period.ID, err)
			continue
		}
		log.Printf("voting: closed period %d (votes=%d)", period.ID, len(votes))

		if ok {
			notifyWinner(db, period.ID, winnerID)
		}
	}
}

func notifyWinner(db *gorm.DB, periodID, nominationID uint64) {
	var nom types.PostNomination
	if err := db.First(&nom, "id = ?", nominationID).Error; err != nil {
		log.Printf("voting: load nomination %d: %v", nominationID, err)
		return
	}
	var answer types.QuestionAnswer
	if err := db.First(&answer, "id = ?", nom.AnswerID).Error; err != nil {
		log.Printf("voting: load answer %d: %v", nom.AnswerID, err)
		return
	}

	notice := types.Notification{
		UserID:    answer.AuthorID,
		Type:      "vote_result",
		Title:     "이번 투표에서 선정되었습니다",
		Body:      fmt.Sprintf("작성하신 답변이 %d회차 투표에서 가장 많은 표를 받았습니다.", periodID),
		CreatedAt: time.Now(),
	}
	if err := db.Create(&notice).Error; err != nil {
		log.Printf("voting: notify winner of period %d: %v", periodID, err)
	}
}
