package repository

import (
	"context"
	"strings"
	"time"

	"volunteerhub/internal/model"
)

const activityColumns = `id, title, description, category, location, start_time, end_time, max_participants,
	status, created_by, created_at, updated_at`

// seatStatuses are the application statuses that occupy capacity.
const seatStatuses = `('APPROVED', 'ATTENDED')`

// viewSelect expects the viewer id as $1 (NULL for anonymous viewers).
var viewSelect = `
	SELECT ` + qualify("act", activityColumns) + `,
		trim(u.first_name || ' ' || u.last_name) AS creator_name,
		(SELECT count(*) FROM activity_applications ap
		 WHERE ap.activity_id = act.id AND ap.status IN ` + seatStatuses + `) AS current_participants,
		mine.status AS application_status,
		mine.applied_at AS applied_at
	FROM activities act
	JOIN accounts u ON u.id = act.created_by
	LEFT JOIN activity_applications mine ON mine.activity_id = act.id AND mine.account_id = $1`

type ActivityFilter struct {
	Category  string
	Status    model.ActivityStatus
	Search    string
	CreatedBy string
	AppliedBy string
	ViewerID  string
	Ascending bool
	Limit     int
	Offset    int
}

func activityConditions(b *builder, filter ActivityFilter) {
	if category := strings.TrimSpace(filter.Category); category != "" {
		b.where("act.category = " + b.arg(category))
	}
	if filter.Status != "" {
		b.where("act.status = " + b.arg(filter.Status))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := b.arg("%" + search + "%")
		b.where("(act.title ILIKE " + p + " OR act.description ILIKE " + p + " OR act.location ILIKE " + p + ")")
	}
	if filter.CreatedBy != "" {
		b.where("act.created_by = " + b.arg(filter.CreatedBy))
	}
	if filter.AppliedBy != "" {
		b.where("EXISTS (SELECT 1 FROM activity_applications x WHERE x.activity_id = act.id AND x.account_id = " + b.arg(filter.AppliedBy) + ")")
	}
}

// ListActivities returns one page of annotated activities and the unpaged total.
func (s *Store) ListActivities(ctx context.Context, filter ActivityFilter) ([]model.ActivityView, int64, error) {
	var count builder
	activityConditions(&count, filter)
	var total int64
	if err := s.get(ctx, &total, `SELECT count(*) FROM activities act`+count.whereClause(), count.args...); err != nil {
		return nil, 0, err
	}

	var b builder
	b.arg(nullableID(filter.ViewerID))
	activityConditions(&b, filter)
	order := " ORDER BY act.start_time DESC, act.id"
	if filter.Ascending {
		order = " ORDER BY act.start_time ASC, act.id"
	}
	query := viewSelect + b.whereClause() + order
	if filter.Limit > 0 {
		query += " LIMIT " + b.arg(filter.Limit) + " OFFSET " + b.arg(filter.Offset)
	}

	var views []model.ActivityView
	if err := s.selectAll(ctx, &views, query, b.args...); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *Store) GetActivityView(ctx context.Context, id, viewerID string) (model.ActivityView, error) {
	var view model.ActivityView
	err := s.get(ctx, &view, viewSelect+` WHERE act.id = $2`, nullableID(viewerID), id)
	return view, err
}

func (s *Store) GetActivity(ctx context.Context, id string) (model.Activity, error) {
	var activity model.Activity
	err := s.get(ctx, &activity, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	return activity, err
}

// LockActivity reads the activity FOR UPDATE so seat checks on it serialize.
func (s *Store) LockActivity(ctx context.Context, id string) (model.Activity, error) {
	var activity model.Activity
	err := s.get(ctx, &activity, `SELECT `+activityColumns+` FROM activities WHERE id = $1 FOR UPDATE`, id)
	return activity, err
}

func (s *Store) CreateActivity(ctx context.Context, activity model.Activity) (model.Activity, error) {
	var created model.Activity
	err := s.get(ctx, &created, `
		INSERT INTO activities (id, title, description, category, location, start_time, end_time, max_participants, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING `+activityColumns,
		activity.ID,
		activity.Title,
		activity.Description,
		activity.Category,
		activity.Location,
		activity.StartTime,
		activity.EndTime,
		activity.MaxParticipants,
		activity.Status,
		activity.CreatedBy,
		activity.CreatedAt,
	)
	return created, err
}

type ActivityChanges struct {
	Title           *string
	Description     *string
	Category        *string
	Location        *string
	StartTime       *time.Time
	EndTime         *time.Time
	MaxParticipants *int
	Status          *model.ActivityStatus
}

func (c ActivityChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Category == nil && c.Location == nil &&
		c.StartTime == nil && c.EndTime == nil && c.MaxParticipants == nil && c.Status == nil
}

// UpdateActivity writes only the non-nil fields.
func (s *Store) UpdateActivity(ctx context.Context, id string, changes ActivityChanges) (model.Activity, error) {
	if changes.Empty() {
		return s.GetActivity(ctx, id)
	}
	var b builder
	if changes.Title != nil {
		b.set("title", *changes.Title)
	}
	if changes.Description != nil {
		b.set("description", *changes.Description)
	}
	if changes.Category != nil {
		b.set("category", *changes.Category)
	}
	if changes.Location != nil {
		b.set("location", *changes.Location)
	}
	if changes.StartTime != nil {
		b.set("start_time", *changes.StartTime)
	}
	if changes.EndTime != nil {
		b.set("end_time", *changes.EndTime)
	}
	if changes.MaxParticipants != nil {
		b.set("max_participants", *changes.MaxParticipants)
	}
	if changes.Status != nil {
		b.set("status", *changes.Status)
	}
	b.sets = append(b.sets, "updated_at = now()")

	var activity model.Activity
	err := s.get(ctx, &activity, `UPDATE activities SET `+strings.Join(b.sets, ", ")+` WHERE id = `+b.arg(id)+` RETURNING `+activityColumns, b.args...)
	return activity, err
}

func (s *Store) SetActivityStatus(ctx context.Context, id string, status model.ActivityStatus) (model.Activity, error) {
	return s.UpdateActivity(ctx, id, ActivityChanges{Status: &status})
}

func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) InsertApproval(ctx context.Context, activityID, decidedBy string, decision model.ActivityStatus, automatic bool, now time.Time) error {
	_, err := s.exec(ctx, `
		INSERT INTO activity_approvals (activity_id, decided_by, decision, automatic, decided_at)
		VALUES ($1, $2, $3, $4, $5)
	`, activityID, decidedBy, decision, automatic, now)
	return err
}

// StaffSummary aggregates over all activities, or only those created by
// createdBy when it is set.
func (s *Store) StaffSummary(ctx context.Context, createdBy string, now time.Time) (model.StaffSummary, error) {
	var summary model.StaffSummary
	err := s.get(ctx, &summary, `
		SELECT
			count(*) AS total_activities,
			count(*) FILTER (WHERE act.status = 'PENDING') AS pending_activities,
			COALESCE(sum((SELECT count(*) FROM activity_applications ap
			               WHERE ap.activity_id = act.id AND ap.status = 'PENDING')), 0)::bigint AS pending_applications,
			count(*) FILTER (WHERE act.status = 'APPROVED' AND act.start_time > $2) AS upcoming_activities
		FROM activities act
		WHERE $1::uuid IS NULL OR act.created_by = $1::uuid
	`, nullableID(createdBy), now)
	return summary, err
}
