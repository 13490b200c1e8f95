// Package activity owns the activity and application state machines and the
// participation ledger derived from them.
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/db"
	"volunteerhub/internal/events"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

var (
	errActivityNotFound = apperr.Missing("activity not found")
	errNotOwner         = apperr.Denied("only the activity owner or an admin may do this")
)

type Manager struct {
	store  *repository.Store
	events *events.Publisher
	now    func() time.Time
}

func NewManager(store *repository.Store, publisher *events.Publisher) *Manager {
	return &Manager{store: store, events: publisher, now: time.Now}
}

// Create stores a new activity. Staff activities wait for approval; admin
// activities are approved on creation with an automatic audit row.
func (m *Manager) Create(ctx context.Context, actor model.Actor, draft Draft) (model.ActivityView, error) {
	if !actor.Role.CanManage() {
		return model.ActivityView{}, apperr.Denied("only staff or admins may create activities")
	}
	if err := draft.Validate(); err != nil {
		return model.ActivityView{}, err
	}
	now := m.now().UTC()
	status := model.ActivityPending
	if actor.IsAdmin() {
		status = model.ActivityApproved
	}

	var created model.Activity
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		created, err = tx.CreateActivity(ctx, model.Activity{
			ID:              uuid.NewString(),
			Title:           draft.Title,
			Description:     draft.Description,
			Category:        draft.Category,
			Location:        draft.Location,
			StartTime:       draft.StartTime.UTC(),
			EndTime:         draft.EndTime.UTC(),
			MaxParticipants: draft.MaxParticipants,
			Status:          status,
			CreatedBy:       actor.ID,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		if status == model.ActivityApproved {
			return tx.InsertApproval(ctx, created.ID, actor.ID, model.ActivityApproved, true, now)
		}
		return nil
	})
	if err != nil {
		return model.ActivityView{}, err
	}
	log.Ctx(ctx).Info().Str("activity_id", created.ID).Str("status", string(status)).Msg("activity created")
	return m.store.GetActivityView(ctx, created.ID, actor.ID)
}

// Get returns the activity as seen by viewer, which is nil for anonymous requests.
func (m *Manager) Get(ctx context.Context, id string, viewer *model.Actor) (model.ActivityView, error) {
	view, err := m.store.GetActivityView(ctx, id, viewerID(viewer))
	if errors.Is(err, repository.ErrNotFound) {
		return model.ActivityView{}, errActivityNotFound
	}
	if err != nil {
		return model.ActivityView{}, err
	}
	if !CanView(viewer, view.Activity) {
		return model.ActivityView{}, apperr.Denied("you may not view this activity")
	}
	return view, nil
}

// List pages through activities newest first. Viewers who are not staff or
// admins only ever see approved activities.
func (m *Manager) List(ctx context.Context, viewer *model.Actor, q Query) (Page, error) {
	if viewer == nil || !viewer.Role.CanManage() {
		q.Status = model.ActivityApproved
	}
	return m.list(ctx, q, repository.ActivityFilter{ViewerID: viewerID(viewer)})
}

// Approved pages through approved activities in start order.
func (m *Manager) Approved(ctx context.Context, viewer *model.Actor, q Query) (Page, error) {
	q.Status = model.ActivityApproved
	return m.list(ctx, q, repository.ActivityFilter{ViewerID: viewerID(viewer), Ascending: true})
}

// Mine lists every activity the actor has applied to.
func (m *Manager) Mine(ctx context.Context, actor model.Actor) ([]model.ActivityView, error) {
	views, _, err := m.store.ListActivities(ctx, repository.ActivityFilter{ViewerID: actor.ID, AppliedBy: actor.ID})
	return views, err
}

// Created pages through the actor's own activities.
func (m *Manager) Created(ctx context.Context, actor model.Actor, q Query) (Page, error) {
	if !actor.Role.CanManage() {
		return Page{}, apperr.Denied("only staff or admins have created activities")
	}
	return m.list(ctx, q, repository.ActivityFilter{ViewerID: actor.ID, CreatedBy: actor.ID})
}

func (m *Manager) list(ctx context.Context, q Query, filter repository.ActivityFilter) (Page, error) {
	q.normalize()
	if q.Status != "" && !q.Status.Valid() {
		return Page{}, apperr.Invalid("invalid activity status")
	}
	filter.Category = q.Category
	filter.Status = q.Status
	filter.Search = q.Search
	filter.Limit = q.Limit
	filter.Offset = q.offset()
	items, total, err := m.store.ListActivities(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Approve records an admin's decision on a pending activity.
func (m *Manager) Approve(ctx context.Context, id string, actor model.Actor, approved bool) (model.Activity, error) {
	if !actor.IsAdmin() {
		return model.Activity{}, apperr.Denied("only admins may approve activities")
	}
	to := model.ActivityRejected
	if approved {
		to = model.ActivityApproved
	}
	var result transitionResult
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		current, err := lockActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != model.ActivityPending {
			return apperr.Conflicting("activity is not pending approval")
		}
		result, err = m.transition(ctx, tx, current, to, actor)
		return err
	})
	if err != nil {
		return model.Activity{}, err
	}
	m.publishTransition(ctx, result, actor)
	return result.activity, nil
}

// UpdateStatus moves an activity to APPROVED, COMPLETED or CANCELLED. Marking
// it COMPLETED writes the participation ledger in the same transaction.
func (m *Manager) UpdateStatus(ctx context.Context, id string, actor model.Actor, to model.ActivityStatus) (model.Activity, int64, error) {
	switch to {
	case model.ActivityApproved, model.ActivityCompleted, model.ActivityCancelled:
	default:
		return model.Activity{}, 0, apperr.Invalid("status must be one of APPROVED, COMPLETED, CANCELLED")
	}
	var result transitionResult
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		current, err := lockActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanManage(actor, current) {
			return errNotOwner
		}
		result, err = m.transition(ctx, tx, current, to, actor)
		return err
	})
	if err != nil {
		return model.Activity{}, 0, err
	}
	m.publishTransition(ctx, result, actor)
	return result.activity, result.recorded, nil
}

// Edit applies the fields present in patch. Only admins may change status.
func (m *Manager) Edit(ctx context.Context, id string, actor model.Actor, patch Patch) (model.ActivityView, error) {
	var result transitionResult
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		current, err := lockActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanManage(actor, current) {
			return errNotOwner
		}
		if patch.Status != nil && !actor.IsAdmin() {
			return apperr.Denied("only admins may change status through an edit")
		}
		if err := patch.Validate(current); err != nil {
			return err
		}
		updated, err := tx.UpdateActivity(ctx, id, repository.ActivityChanges{
			Title:           patch.Title,
			Description:     patch.Description,
			Category:        patch.Category,
			Location:        patch.Location,
			StartTime:       patch.StartTime,
			EndTime:         patch.EndTime,
			MaxParticipants: patch.MaxParticipants,
		})
		if db.IsCheckViolation(err) {
			return apperr.Invalid("start_time must be before end_time and max_participants cannot be negative")
		}
		if err != nil {
			return err
		}
		if patch.Status != nil && *patch.Status != updated.Status {
			result, err = m.transition(ctx, tx, updated, *patch.Status, actor)
		}
		return err
	})
	if err != nil {
		return model.ActivityView{}, err
	}
	if result.activity.ID != "" {
		m.publishTransition(ctx, result, actor)
	}
	return m.store.GetActivityView(ctx, id, actor.ID)
}

// Delete removes an activity. Owners may only delete activities nobody has
// applied to; admins may always delete.
func (m *Manager) Delete(ctx context.Context, id string, actor model.Actor) error {
	return m.store.WithTx(ctx, func(tx *repository.Store) error {
		current, err := lockActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanManage(actor, current) {
			return errNotOwner
		}
		if !actor.IsAdmin() {
			n, err := tx.CountApplications(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflicting("activity already has applicants, contact an admin to delete it")
			}
		}
		return tx.DeleteActivity(ctx, id)
	})
}

type transitionResult struct {
	activity model.Activity
	from     model.ActivityStatus
	recorded int64
	at       time.Time
}

// transition runs inside tx with the activity row locked.
func (m *Manager) transition(ctx context.Context, tx *repository.Store, current model.Activity, to model.ActivityStatus, actor model.Actor) (transitionResult, error) {
	if err := CheckTransition(current.Status, to); err != nil {
		return transitionResult{}, err
	}
	now := m.now().UTC()
	result := transitionResult{from: current.Status, at: now}

	if current.Status == model.ActivityPending {
		if !actor.IsAdmin() {
			return transitionResult{}, apperr.Denied("only admins may approve or reject activities")
		}
		if err := tx.InsertApproval(ctx, current.ID, actor.ID, to, false, now); err != nil {
			return transitionResult{}, err
		}
	}

	updated, err := tx.SetActivityStatus(ctx, current.ID, to)
	if err != nil {
		return transitionResult{}, err
	}
	result.activity = updated

	if to == model.ActivityCompleted {
		hours := updated.DurationHours()
		n, err := tx.UpsertParticipationByStatus(ctx, updated.ID, model.ApplicationApproved, hours, hours, actor.ID, now)
		if err != nil {
			return transitionResult{}, err
		}
		result.recorded = n
	}
	return result, nil
}

func (m *Manager) publishTransition(ctx context.Context, result transitionResult, actor model.Actor) {
	to := result.activity.Status
	metrics.ActivityTransitions.WithLabelValues(string(to)).Inc()
	log.Ctx(ctx).Info().
		Str("activity_id", result.activity.ID).
		Str("from", string(result.from)).
		Str("to", string(to)).
		Int64("participation_records", result.recorded).
		Msg("activity status changed")

	m.events.Publish(ctx, events.SubjectActivityStatus, events.ActivityStatusChanged{
		ActivityID: result.activity.ID,
		From:       string(result.from),
		To:         string(to),
		ActorID:    actor.ID,
		At:         result.at,
	})
	if to == model.ActivityCompleted {
		metrics.ParticipationRecords.Add(float64(result.recorded))
		hours := result.activity.DurationHours()
		m.events.Publish(ctx, events.SubjectParticipationRecord, events.ParticipationRecorded{
			ActivityID: result.activity.ID,
			Records:    result.recorded,
			Hours:      hours,
			Points:     hours,
			ActorID:    actor.ID,
			At:         result.at,
		})
	}
}

func lockActivity(ctx context.Context, tx *repository.Store, id string) (model.Activity, error) {
	activity, err := tx.LockActivity(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Activity{}, errActivityNotFound
	}
	return activity, err
}

func viewerID(viewer *model.Actor) string {
	if viewer == nil {
		return ""
	}
	return viewer.ID
}
