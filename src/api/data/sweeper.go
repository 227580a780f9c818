package data

import (
	"context"
	"log"
	"time"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"gorm.io/gorm"
)

// TypingStaleAfter is the age at which a typing row stops being listed.
// A crashed client can leave its row behind; reads filter it out after this
// long, and the sweeper eventually deletes it.
const TypingStaleAfter = 10 * time.Second

const typingSweepAge = time.Minute

// TypingSweeperService periodically deletes typing-indicator rows that their
// owners never cleaned up.
func TypingSweeperService(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-typingSweepAge)
			res := db.Where("updated_at < ?", cutoff).Delete(&types.MeetingTypingIndicator{})
			if res.Error != nil {
				log.Printf("typing sweeper: %v", res.Error)
			} else if res.RowsAffected > 0 {
				log.Printf("typing sweeper: removed %d stale rows", res.RowsAffected)
			}
		}
	}
}
