package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	interviews := db.Collection("interviews")
	_, err := interviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "interview_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_interview_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_user_created"),
		},
		// latest-interviews feed
		{
			Keys:    bson.D{{Key: "finalized", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_finalized_created"),
		},
	})
	if err != nil {
		return err
	}

	feedback := db.Collection("feedback")
	_, err = feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "feedback_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_feedback_id").
				SetUnique(true),
		},
		// one-per-pair lookup path; uniqueness is by construction (feedback_id
		// reuse), not enforced here
		{
			Keys:    bson.D{{Key: "interview_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetName("by_interview_user"),
		},
	})
	if err != nil {
		return err
	}

	schedules := db.Collection("scheduled_sessions")
	_, err = schedules.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "schedule_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_schedule_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().SetName("by_user_scheduled"),
		},
	})
	return err
}
