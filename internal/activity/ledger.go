package activity

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/events"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

// Score is the hours and points credited for an activity.
type Score struct {
	Hours  float64
	Points float64
}

func (s Score) Validate() error {
	for _, v := range []float64{s.Hours, s.Points} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.Invalid("hours and points must be non-negative numbers")
		}
	}
	return nil
}

// ScoreOne credits one ATTENDED application.
func (m *Manager) ScoreOne(ctx context.Context, activityID, applicationID string, actor model.Actor, score Score) (model.Participation, error) {
	if err := score.Validate(); err != nil {
		return model.Participation{}, err
	}
	now := m.now().UTC()
	var record model.Participation
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		current, err := lockActivity(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if !CanManage(actor, current) {
			return errNotOwner
		}
		app, err := tx.LockApplicationByID(ctx, activityID, applicationID)
		if errors.Is(err, repository.ErrNotFound) {
			return errApplicationMissing
		}
		if err != nil {
			return err
		}
		if app.Status != model.ApplicationAttended {
			return apperr.Conflicting("only attended applicants can be scored")
		}
		record = model.Participation{
			ActivityID: activityID,
			AccountID:  app.AccountID,
			Hours:      score.Hours,
			Points:     score.Points,
			VerifiedBy: actor.ID,
			VerifiedAt: now,
		}
		return tx.UpsertParticipation(ctx, record)
	})
	if err != nil {
		return model.Participation{}, err
	}
	m.recorded(ctx, activityID, record.AccountID, 1, score, actor)
	return record, nil
}

// ScoreAll credits every ATTENDED application of the activity and returns how
// many records were written.
func (m *Manager) ScoreAll(ctx context.Context, activityID string, actor model.Actor, score Score) (int64, error) {
	if err := score.Validate(); err != nil {
		return 0, err
	}
	var n int64
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		current, err := lockActivity(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if !CanManage(actor, current) {
			return errNotOwner
		}
		n, err = tx.UpsertParticipationByStatus(ctx, activityID, model.ApplicationAttended, score.Hours, score.Points, actor.ID, m.now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperr.Conflicting("activity has no attended applicants to score")
	}
	m.recorded(ctx, activityID, "", n, score, actor)
	return n, nil
}

func (m *Manager) recorded(ctx context.Context, activityID, accountID string, n int64, score Score, actor model.Actor) {
	metrics.ParticipationRecords.Add(float64(n))
	log.Ctx(ctx).Info().
		Str("activity_id", activityID).
		Int64("records", n).
		Float64("hours", score.Hours).
		Float64("points", score.Points).
		Msg("participation recorded")
	m.events.Publish(ctx, events.SubjectParticipationRecord, events.ParticipationRecorded{
		ActivityID: activityID,
		AccountID:  accountID,
		Records:    n,
		Hours:      score.Hours,
		Points:     score.Points,
		ActorID:    actor.ID,
		At:         m.now().UTC(),
	})
}

// Participation lists the ledger rows of an activity for its owner or an admin.
func (m *Manager) Participation(ctx context.Context, activityID string, actor model.Actor) ([]model.Participation, error) {
	current, err := m.store.GetActivity(ctx, activityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	if !CanManage(actor, current) {
		return nil, errNotOwner
	}
	return m.store.ListParticipation(ctx, activityID)
}

// Summary is the actor's personal accrual dashboard.
func (m *Manager) Summary(ctx context.Context, actor model.Actor) (model.PersonalSummary, error) {
	return m.store.PersonalSummary(ctx, actor.ID, m.now().UTC())
}

// StaffSummary covers the actor's own activities, or all of them for admins.
func (m *Manager) StaffSummary(ctx context.Context, actor model.Actor) (model.StaffSummary, error) {
	if !actor.Role.CanManage() {
		return model.StaffSummary{}, apperr.Denied("only staff or admins may view this summary")
	}
	createdBy := actor.ID
	if actor.IsAdmin() {
		createdBy = ""
	}
	return m.store.StaffSummary(ctx, createdBy, m.now().UTC())
}
