package types

import "time"

// Users (auth identity)
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Email        string `gorm:"size:256;unique;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profiles (public identity shown next to answers and chats)
type Profile struct {
	UserID    uint64 `gorm:"primaryKey"`
	Nickname  string `gorm:"size:64;unique;not null"`
	AvatarURL string `gorm:"size:512"`
	Bio       string `gorm:"size:512"`
	UpdatedAt time.Time
}

// Invitation codes (signup is invite-only)
type InvitationCode struct {
	ID        uint64 `gorm:"primaryKey"`
	Code      string `gorm:"size:64;unique;not null"`
	CreatedBy uint64 `gorm:"index"`
	UsedBy    *uint64
	UsedAt    *time.Time
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Daily questions
type DailyQuestion struct {
	ID          uint64 `gorm:"primaryKey"`
	Content     string `gorm:"type:text;not null"`
	ScheduledOn string `gorm:"size:10;index"` // YYYY-MM-DD, KST
	Active      bool   `gorm:"default:false;index"`
	CreatedAt   time.Time
}

// Answers to daily questions
type QuestionAnswer struct {
	ID         uint64 `gorm:"primaryKey"`
	QuestionID uint64 `gorm:"index;not null"`
	AuthorID   uint64 `gorm:"index;not null"`
	Body       string `gorm:"type:text;not null"`
	ImageURL1  string `gorm:"size:512"`
	ImageURL2  string `gorm:"size:512"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Comments on answers
type AnswerComment struct {
	ID        uint64 `gorm:"primaryKey"`
	AnswerID  uint64 `gorm:"index;not null"`
	AuthorID  uint64 `gorm:"index;not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// Per-user "thought about it" marker on a question
type QuestionCheck struct {
	QuestionID uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"primaryKey"`
	CreatedAt  time.Time
}

// Offline meetups
type Meeting struct {
	ID          uint64 `gorm:"primaryKey"`
	HostID      uint64 `gorm:"index;not null"`
	Title       string `gorm:"size:128;not null"`
	Description string `gorm:"type:text"`
	Location    string `gorm:"size:256"`
	MeetAt      time.Time
	Capacity    uint16 `gorm:"default:0"` // 0 = unlimited
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Meetup participants
type MeetingParticipant struct {
	MeetingID uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"primaryKey"`
	Role      string `gorm:"size:32"` // host, member
	JoinedAt  time.Time
}

// Chat messages inside a meetup
type MeetingChat struct {
	ID        uint64 `gorm:"primaryKey"`
	MeetingID uint64 `gorm:"index;not null"`
	SenderID  uint64 `gorm:"index;not null"`
	Message   string `gorm:"type:text;not null"`
	ImageURL  string `gorm:"size:512"`
	CreatedAt time.Time
}

// Ephemeral typing markers, expired by elapsed time on read
type MeetingTypingIndicator struct {
	MeetingID uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"primaryKey"`
	UpdatedAt time.Time
}

// Read receipts, one row per (meeting, user, message)
type MeetingChatReadReceipt struct {
	ID        uint64 `gorm:"primaryKey"`
	MeetingID uint64 `gorm:"uniqueIndex:uniq_receipt;not null"`
	UserID    uint64 `gorm:"uniqueIndex:uniq_receipt;not null"`
	ChatID    uint64 `gorm:"uniqueIndex:uniq_receipt;not null"`
	ReadAt    time.Time
}

// Answers nominated for the community vote
type PostNomination struct {
	ID          uint64 `gorm:"primaryKey"`
	PeriodID    uint64 `gorm:"uniqueIndex:uniq_nomination;not null"`
	AnswerID    uint64 `gorm:"uniqueIndex:uniq_nomination;not null"`
	NominatedBy uint64 `gorm:"index;not null"`
	CreatedAt   time.Time
}

// Votes (one per voter per period; re-cast replaces)
type Vote struct {
	ID           uint64 `gorm:"primaryKey"`
	PeriodID     uint64 `gorm:"uniqueIndex:uniq_vote;not null"`
	VoterID      uint64 `gorm:"uniqueIndex:uniq_vote;not null"`
	NominationID uint64 `gorm:"index;not null"`
	CreatedAt    time.Time
}

// Voting periods
type VotingPeriod struct {
	ID               uint64 `gorm:"primaryKey"`
	OpensAt          time.Time
	ClosesAt         time.Time
	Status           string `gorm:"size:16;index"` // open, closed
	WinnerNomination *uint64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Notifications
type Notification struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"index;uniqueIndex:uniq_chat_notice;not null"`
	Type      string `gorm:"size:32;not null"` // chat, comment, vote_result
	Title     string `gorm:"size:256;not null"`
	Body      string `gorm:"type:text"`
	MeetingID *uint64
	ChatID    *uint64 `gorm:"uniqueIndex:uniq_chat_notice"`
	Read      bool    `gorm:"default:false;index"`
	CreatedAt time.Time
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
