package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/prepdeck/prepdeck/internal/models"
	mongorepo "github.com/prepdeck/prepdeck/internal/repositories/mongo"
	"github.com/prepdeck/prepdeck/internal/utils"
)

// Classified is the read-time partition of a user's scheduled sessions.
type Classified struct {
	Upcoming []models.ScheduledSession `json:"upcoming"`
	Past     []models.ScheduledSession `json:"past"`
}

// Classify partitions sessions against now. The boundary is inclusive:
// scheduledAt == now classifies as upcoming. Pure function; no stored status
// is ever transitioned.
func Classify(now time.Time, sessions []models.ScheduledSession) Classified {
	out := Classified{
		Upcoming: []models.ScheduledSession{},
		Past:     []models.ScheduledSession{},
	}
	for _, s := range sessions {
		if !s.ScheduledAt.Before(now) {
			out.Upcoming = append(out.Upcoming, s)
		} else {
			out.Past = append(out.Past, s)
		}
	}
	return out
}

type CreateScheduleInput struct {
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	InterviewID string    `json:"interview_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

type ScheduleService interface {
	Create(ctx context.Context, userID string, in CreateScheduleInput) (*models.ScheduledSession, error)
	ListForUser(ctx context.Context, userID string, now time.Time) (Classified, error)
	// Cancel deletes a scheduled session after verifying the caller owns it.
	Cancel(ctx context.Context, userID, scheduleID string) error
}

type scheduleService struct {
	schedules mongorepo.ScheduleRepository
}

func NewScheduleService(schedules mongorepo.ScheduleRepository) ScheduleService {
	return &scheduleService{schedules: schedules}
}

func (s *scheduleService) Create(ctx context.Context, userID string, in CreateScheduleInput) (*models.ScheduledSession, error) {
	const op = "ScheduleService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if in.Title == "" || in.ScheduledAt.IsZero() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title and scheduled_at are required", nil)
	}

	sess := &models.ScheduledSession{
		ScheduleID:  uuid.NewString(),
		UserID:      userID,
		InterviewID: in.InterviewID,
		Title:       in.Title,
		Notes:       in.Notes,
		ScheduledAt: in.ScheduledAt.UTC(),
		Status:      "scheduled",
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.schedules.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create scheduled session", err)
	}
	return sess, nil
}

func (s *scheduleService) ListForUser(ctx context.Context, userID string, now time.Time) (Classified, error) {
	const op = "ScheduleService.ListForUser"

	if userID == "" {
		return Classified{}, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	sessions, err := s.schedules.ListByUser(ctx, userID)
	if err != nil {
		return Classified{}, utils.E(utils.CodeInternal, op, "failed to list scheduled sessions", err)
	}
	return Classify(now, sessions), nil
}

func (s *scheduleService) Cancel(ctx context.Context, userID, scheduleID string) error {
	const op = "ScheduleService.Cancel"

	if userID == "" || scheduleID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and schedule_id are required", nil)
	}

	sess, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "scheduled session not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to get scheduled session", err)
	}
	if sess.UserID != userID {
		return utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}

	if err := s.schedules.Delete(ctx, scheduleID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete scheduled session", err)
	}
	return nil
}
