package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/utils"
)

type FeedbackRepository interface {
	// Upsert replaces the document at fb.FeedbackID, creating it if absent.
	// The write is a single-document all-or-nothing replace.
	Upsert(ctx context.Context, fb *models.Feedback) error
	GetByID(ctx context.Context, feedbackID string) (*models.Feedback, error)
	GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*models.Feedback, error)
}

type feedbackRepo struct {
	col *mongo.Collection
}

func NewFeedbackRepo(db *mongo.Database) FeedbackRepository {
	return &feedbackRepo{col: db.Collection("feedback")}
}

func (r *feedbackRepo) Upsert(ctx context.Context, fb *models.Feedback) error {
	fb.ID = primitive.NilObjectID // let the filter key the write, not a stale _id
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"feedback_id": fb.FeedbackID},
		fb,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *feedbackRepo) GetByID(ctx context.Context, feedbackID string) (*models.Feedback, error) {
	var fb models.Feedback
	err := r.col.FindOne(ctx, bson.M{"feedback_id": feedbackID}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &fb, err
}

func (r *feedbackRepo) GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	var fb models.Feedback
	err := r.col.FindOne(ctx, bson.M{"interview_id": interviewID, "user_id": userID}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &fb, err
}
