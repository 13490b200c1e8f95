package activity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/events"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

var (
	errAlreadyApplied     = apperr.Conflicting("you have already applied to this activity")
	errActivityFull       = apperr.Conflicting("activity is full")
	errApplicationMissing = apperr.Missing("application not found")
)

// Apply creates a PENDING application. The activity row is locked while the
// seats are counted, so concurrent applications serialize.
func (m *Manager) Apply(ctx context.Context, activityID string, actor model.Actor) (model.Application, error) {
	var app model.Application
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		app, err = m.apply(ctx, tx, activityID, actor)
		return err
	})
	if err != nil {
		return model.Application{}, err
	}
	log.Ctx(ctx).Info().Str("activity_id", activityID).Str("application_id", app.ID).Msg("application submitted")
	return app, nil
}

func (m *Manager) apply(ctx context.Context, tx *repository.Store, activityID string, actor model.Actor) (model.Application, error) {
	current, err := tx.LockActivity(ctx, activityID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Application{}, apperr.Missing("activity not found or not open for applications")
	}
	if err != nil {
		return model.Application{}, err
	}
	if current.Status != model.ActivityApproved {
		return model.Application{}, apperr.Missing("activity not found or not open for applications")
	}
	now := m.now().UTC()
	if current.EndTime.Before(now) {
		return model.Application{}, apperr.Conflicting("activity has already ended")
	}
	if _, err := tx.GetApplication(ctx, activityID, actor.ID); err == nil {
		return model.Application{}, errAlreadyApplied
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Application{}, err
	}
	taken, err := tx.CountSeats(ctx, activityID)
	if err != nil {
		return model.Application{}, err
	}
	if !HasSeat(current.MaxParticipants, taken) {
		return model.Application{}, errActivityFull
	}
	return tx.InsertApplication(ctx, model.Application{
		ID:         uuid.NewString(),
		ActivityID: activityID,
		AccountID:  actor.ID,
		Status:     model.ApplicationPending,
		AppliedAt:  now,
	})
}

// Cancel withdraws the actor's application. A seat-holding application cannot
// be withdrawn once the activity has started.
func (m *Manager) Cancel(ctx context.Context, activityID string, actor model.Actor) error {
	return m.store.WithTx(ctx, func(tx *repository.Store) error {
		return m.cancel(ctx, tx, activityID, actor)
	})
}

func (m *Manager) cancel(ctx context.Context, tx *repository.Store, activityID string, actor model.Actor) error {
	current, err := lockActivity(ctx, tx, activityID)
	if err != nil {
		return err
	}
	app, err := tx.LockApplication(ctx, activityID, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Missing("you have not applied to this activity")
	}
	if err != nil {
		return err
	}
	if app.Status.HoldsSeat() && !current.StartTime.After(m.now()) {
		return apperr.Conflicting("cannot cancel after the activity has started")
	}
	return tx.DeleteApplication(ctx, app.ID)
}

// Toggle cancels an existing application or applies when there is none. It
// reports whether the actor is registered afterwards.
func (m *Manager) Toggle(ctx context.Context, activityID string, actor model.Actor) (bool, *model.Application, error) {
	var (
		registered bool
		created    *model.Application
	)
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		if _, err := lockActivity(ctx, tx, activityID); err != nil {
			return err
		}
		_, err := tx.GetApplication(ctx, activityID, actor.ID)
		switch {
		case err == nil:
			registered = false
			return m.cancel(ctx, tx, activityID, actor)
		case errors.Is(err, repository.ErrNotFound):
			app, err := m.apply(ctx, tx, activityID, actor)
			if err != nil {
				return err
			}
			registered, created = true, &app
			return nil
		default:
			return err
		}
	})
	return registered, created, err
}

// Applicants lists the activity's applications for its owner or an admin.
func (m *Manager) Applicants(ctx context.Context, activityID string, actor model.Actor, status model.ApplicationStatus) ([]model.Applicant, error) {
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
	return m.store.ListApplicants(ctx, activityID, status)
}

func (m *Manager) ApproveApplicant(ctx context.Context, activityID, applicationID string, actor model.Actor) (model.Application, error) {
	return m.decide(ctx, activityID, applicationID, actor, model.ApplicationApproved)
}

func (m *Manager) RejectApplicant(ctx context.Context, activityID, applicationID string, actor model.Actor) (model.Application, error) {
	return m.decide(ctx, activityID, applicationID, actor, model.ApplicationRejected)
}

// MarkAttended is idempotent for applications that are already ATTENDED.
func (m *Manager) MarkAttended(ctx context.Context, activityID, applicationID string, actor model.Actor) (model.Application, error) {
	return m.decide(ctx, activityID, applicationID, actor, model.ApplicationAttended)
}

func (m *Manager) decide(ctx context.Context, activityID, applicationID string, actor model.Actor, to model.ApplicationStatus) (model.Application, error) {
	var decided model.Application
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
		if err := CheckDecision(app.Status, to); err != nil {
			return err
		}
		if to == model.ApplicationApproved {
			taken, err := tx.CountSeats(ctx, activityID)
			if err != nil {
				return err
			}
			if !HasSeat(current.MaxParticipants, taken) {
				return errActivityFull
			}
		}
		decided, err = tx.SetApplicationStatus(ctx, app.ID, to, actor.ID, m.now().UTC())
		return err
	})
	if err != nil {
		return model.Application{}, err
	}

	metrics.ApplicationDecisions.WithLabelValues(string(to)).Inc()
	log.Ctx(ctx).Info().
		Str("activity_id", activityID).
		Str("application_id", decided.ID).
		Str("status", string(to)).
		Msg("application decided")
	m.events.Publish(ctx, events.SubjectApplicationDecided, events.ApplicationDecided{
		ActivityID:    activityID,
		ApplicationID: decided.ID,
		AccountID:     decided.AccountID,
		Status:        string(to),
		ActorID:       actor.ID,
		At:            m.now().UTC(),
	})
	return decided, nil
}
