package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/utils"
)

type ScheduleRepository interface {
	Create(ctx context.Context, s *models.ScheduledSession) error
	GetByID(ctx context.Context, scheduleID string) (*models.ScheduledSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.ScheduledSession, error)
	Delete(ctx context.Context, scheduleID string) error
}

type scheduleRepo struct {
	col *mongo.Collection
}

func NewScheduleRepo(db *mongo.Database) ScheduleRepository {
	return &scheduleRepo{col: db.Collection("scheduled_sessions")}
}

func (r *scheduleRepo) Create(ctx context.Context, s *models.ScheduledSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *scheduleRepo) GetByID(ctx context.Context, scheduleID string) (*models.ScheduledSession, error) {
	var s models.ScheduledSession
	err := r.col.FindOne(ctx, bson.M{"schedule_id": scheduleID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *scheduleRepo) ListByUser(ctx context.Context, userID string) ([]models.ScheduledSession, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ScheduledSession
	err = cur.All(ctx, &out)
	return out, err
}

func (r *scheduleRepo) Delete(ctx context.Context, scheduleID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"schedule_id": scheduleID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
