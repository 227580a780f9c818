package data

import (
	"context"
	"log"
	"time"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"gorm.io/gorm"
)

var seoul = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}()

// TodayKST returns the current date in the YYYY-MM-DD form questions are
// scheduled with.
func TodayKST(now time.Time) string {
	return now.In(seoul).Format("2006-01-02")
}

// QuestionService activates the question scheduled for the current day (KST)
// and deactivates everything else. Runs once immediately, then on the ticker.
func QuestionService(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rotate(db)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rotate(db)
		}
	}
}

func rotate(db *gorm.DB) {
	today := TodayKST(time.Now())

	var q types.DailyQuestion
	if err := db.First(&q, "scheduled_on = ?", today).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("questions: lookup for %s: %v", today, err)
		}
		return
	}
	if q.Active {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&types.DailyQuestion{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&types.DailyQuestion{}).Where("id = ?", q.ID).Update("active", true).Error
	})
	if err != nil {
		log.Printf("questions: rotate to %s: %v", today, err)
		return
	}
	log.Printf("questions: activated question %d for %s", q.ID, today)
}
