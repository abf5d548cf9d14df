package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/utils"
)

type memScheduleRepo struct {
	byID map[string]models.ScheduledSession
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{byID: map[string]models.ScheduledSession{}}
}

func (r *memScheduleRepo) Create(ctx context.Context, s *models.ScheduledSession) error {
	r.byID[s.ScheduleID] = *s
	return nil
}

func (r *memScheduleRepo) GetByID(ctx context.Context, scheduleID string) (*models.ScheduledSession, error) {
	s, ok := r.byID[scheduleID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r *memScheduleRepo) ListByUser(ctx context.Context, userID string) ([]models.ScheduledSession, error) {
	var out []models.ScheduledSession
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) Delete(ctx context.Context, scheduleID string) error {
	if _, ok := r.byID[scheduleID]; !ok {
		return utils.ErrNotFound
	}
	delete(r.byID, scheduleID)
	return nil
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sessions := []models.ScheduledSession{
		{ScheduleID: "past", ScheduledAt: now.Add(-time.Hour)},
		{ScheduleID: "boundary", ScheduledAt: now},
		{ScheduleID: "future", ScheduledAt: now.Add(time.Hour)},
	}

	out := Classify(now, sessions)

	require.Len(t, out.Upcoming, 2)
	require.Len(t, out.Past, 1)
	assert.Equal(t, "past", out.Past[0].ScheduleID)
	// scheduledAt == now is upcoming, not past
	assert.Equal(t, "boundary", out.Upcoming[0].ScheduleID)
	assert.Equal(t, "future", out.Upcoming[1].ScheduleID)
}

func TestClassifyEmpty(t *testing.T) {
	out := Classify(time.Now(), nil)

	// both halves marshal as [] rather than null
	require.NotNil(t, out.Upcoming)
	require.NotNil(t, out.Past)
	assert.Empty(t, out.Upcoming)
	assert.Empty(t, out.Past)
}

func TestScheduleCreate(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := NewScheduleService(repo)

	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	s, err := svc.Create(context.Background(), "user-1", CreateScheduleInput{
		Title:       "System design practice",
		ScheduledAt: at,
		InterviewID: "iv-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ScheduleID)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, at, s.ScheduledAt)
	assert.Equal(t, "scheduled", s.Status)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestScheduleCreateValidation(t *testing.T) {
	svc := NewScheduleService(newMemScheduleRepo())
	at := time.Now().Add(time.Hour)

	_, err := svc.Create(context.Background(), "user-1", CreateScheduleInput{ScheduledAt: at})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Create(context.Background(), "user-1", CreateScheduleInput{Title: "x"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Create(context.Background(), "", CreateScheduleInput{Title: "x", ScheduledAt: at})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestScheduleCancel(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := NewScheduleService(repo)

	s, err := svc.Create(context.Background(), "user-1", CreateScheduleInput{
		Title:       "Behavioural prep",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), "user-1", s.ScheduleID))
	_, err = repo.GetByID(context.Background(), s.ScheduleID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestScheduleCancelOwnership(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := NewScheduleService(repo)

	s, err := svc.Create(context.Background(), "user-1", CreateScheduleInput{
		Title:       "Behavioural prep",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), "intruder", s.ScheduleID)
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	// still there
	_, err = repo.GetByID(context.Background(), s.ScheduleID)
	require.NoError(t, err)
}

func TestScheduleCancelNotFound(t *testing.T) {
	svc := NewScheduleService(newMemScheduleRepo())

	err := svc.Cancel(context.Background(), "user-1", "missing")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
