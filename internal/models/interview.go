package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Interview struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	InterviewID string             `bson:"interview_id" json:"id"` // uuid v4
	UserID      string             `bson:"user_id" json:"user_id"`

	Role      string   `bson:"role" json:"role"`
	Level     string   `bson:"level" json:"level"`
	Type      string   `bson:"type" json:"type"` // behavioural|technical|mixed
	Techstack []string `bson:"techstack" json:"techstack"`
	Questions []string `bson:"questions" json:"questions"`

	CoverImage string `bson:"cover_image" json:"cover_image"`

	// Immutable once finalized; a regenerate replaces the document wholesale.
	Finalized bool `bson:"finalized" json:"finalized"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
