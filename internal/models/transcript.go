package models

import (
	"time"

	"gorm.io/datatypes"
)

// TranscriptEntry is one archived turn of a finished interview call.
// The in-memory accumulator is the source of truth during a call; rows are
// written in bulk after feedback synthesis succeeds.
type TranscriptEntry struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	InterviewID string         `gorm:"column:interview_id;type:uuid;index" json:"interview_id"`
	CallID      string         `gorm:"column:call_id;type:uuid;index" json:"call_id"`
	Position    int            `gorm:"column:position" json:"position"` // append order within the call
	Speaker     string         `gorm:"column:speaker;type:text" json:"speaker"`
	Text        string         `gorm:"column:text;type:text" json:"text"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (TranscriptEntry) TableName() string { return "transcript_entries" }
