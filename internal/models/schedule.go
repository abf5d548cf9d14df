package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledSession is a planned practice slot. Upcoming vs past is derived
// from ScheduledAt at read time; Status is set at creation and never
// transitioned by the system.
type ScheduledSession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ScheduleID string             `bson:"schedule_id" json:"id"` // uuid v4
	UserID     string             `bson:"user_id" json:"user_id"`

	InterviewID string `bson:"interview_id,omitempty" json:"interview_id,omitempty"`
	Title       string `bson:"title" json:"title"`
	Notes       string `bson:"notes,omitempty" json:"notes,omitempty"`

	ScheduledAt time.Time `bson:"scheduled_at" json:"scheduled_at"`
	Status      string    `bson:"status" json:"status"` // always "scheduled"

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
