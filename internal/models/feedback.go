package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategoryScore is one rubric category verdict. Order in CategoryScores
// mirrors the rubric order.
type CategoryScore struct {
	Name    string `bson:"name" json:"name"`
	Score   int    `bson:"score" json:"score"` // 0..100
	Comment string `bson:"comment" json:"comment"`
}

// Feedback is the persisted scoring result for one (interview, user) pair.
// The write key is FeedbackID: a retake that supplies the same id overwrites
// the record in place.
type Feedback struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FeedbackID  string             `bson:"feedback_id" json:"id"` // uuid v4
	InterviewID string             `bson:"interview_id" json:"interview_id"`
	UserID      string             `bson:"user_id" json:"user_id"`

	TotalScore          int             `bson:"total_score" json:"total_score"` // 0..100, independent of category scores
	CategoryScores      []CategoryScore `bson:"category_scores" json:"category_scores"`
	Strengths           []string        `bson:"strengths" json:"strengths"`
	AreasForImprovement []string        `bson:"areas_for_improvement" json:"areas_for_improvement"`
	FinalAssessment     string          `bson:"final_assessment" json:"final_assessment"`

	// Stamped at persistence time; a retake overwrite re-stamps it.
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
