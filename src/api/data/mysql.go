package data

import (
	"log"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// Migrate creates or updates the schema. Uniqueness and foreign keys live in the
// database; handlers trust them and surface violations as errors.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},
		&types.Profile{},
		&types.InvitationCode{},
		&types.DailyQuestion{},
		&types.QuestionAnswer{},
		&types.AnswerComment{},
		&types.QuestionCheck{},
		&types.Meeting{},
		&types.MeetingParticipant{},
		&types.MeetingChat{},
		&types.MeetingTypingIndicator{},
		&types.MeetingChatReadReceipt{},
		&types.PostNomination{},
		&types.Vote{},
		&types.VotingPeriod{},
		&types.Notification{},
		&types.Setting{},
	)
}
