package repository

import (
	"context"
	"time"

	"volunteerhub/internal/model"
)

const applicationColumns = `id, activity_id, account_id, status, applied_at, decided_by, decided_at`

func (s *Store) GetApplication(ctx context.Context, activityID, accountID string) (model.Application, error) {
	var app model.Application
	err := s.get(ctx, &app, `
		SELECT `+applicationColumns+`
		FROM activity_applications
		WHERE activity_id = $1 AND account_id = $2
	`, activityID, accountID)
	return app, err
}

func (s *Store) LockApplication(ctx context.Context, activityID, accountID string) (model.Application, error) {
	var app model.Application
	err := s.get(ctx, &app, `
		SELECT `+applicationColumns+`
		FROM activity_applications
		WHERE activity_id = $1 AND account_id = $2
		FOR UPDATE
	`, activityID, accountID)
	return app, err
}

func (s *Store) InsertApplication(ctx context.Context, app model.Application) (model.Application, error) {
	var created model.Application
	err := s.get(ctx, &created, `
		INSERT INTO activity_applications (id, activity_id, account_id, status, applied_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+applicationColumns,
		app.ID, app.ActivityID, app.AccountID, app.Status, app.AppliedAt)
	return created, err
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM activity_applications WHERE id = $1`, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) SetApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus, decidedBy string, now time.Time) (model.Application, error) {
	var app model.Application
	err := s.get(ctx, &app, `
		UPDATE activity_applications
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1
		RETURNING `+applicationColumns, id, status, decidedBy, now)
	return app, err
}

// CountSeats counts applications holding a seat on the activity.
func (s *Store) CountSeats(ctx context.Context, activityID string) (int64, error) {
	var n int64
	err := s.get(ctx, &n, `
		SELECT count(*) FROM activity_applications
		WHERE activity_id = $1 AND status IN `+seatStatuses, activityID)
	return n, err
}

func (s *Store) CountApplications(ctx context.Context, activityID string) (int64, error) {
	var n int64
	err := s.get(ctx, &n, `SELECT count(*) FROM activity_applications WHERE activity_id = $1`, activityID)
	return n, err
}

// ListApplicants returns the activity's applications joined with applicant
// details; status narrows the result when set.
func (s *Store) ListApplicants(ctx context.Context, activityID string, status model.ApplicationStatus) ([]model.Applicant, error) {
	var b builder
	b.where("ap.activity_id = " + b.arg(activityID))
	if status != "" {
		b.where("ap.status = " + b.arg(status))
	}
	var applicants []model.Applicant
	err := s.selectAll(ctx, &applicants, `
		SELECT `+qualify("ap", applicationColumns)+`,
			a.student_id, a.first_name, a.last_name, a.email,
			f.name AS faculty_name, m.name AS major_name
		FROM activity_applications ap
		JOIN accounts a ON a.id = ap.account_id
		LEFT JOIN faculties f ON f.id = a.faculty_id
		LEFT JOIN majors m ON m.id = a.major_id`+b.whereClause()+`
		ORDER BY ap.applied_at ASC, ap.id`, b.args...)
	return applicants, err
}

// LockApplicationByID reads one application of the activity FOR UPDATE.
func (s *Store) LockApplicationByID(ctx context.Context, activityID, id string) (model.Application, error) {
	var app model.Application
	err := s.get(ctx, &app, `
		SELECT `+applicationColumns+`
		FROM activity_applications
		WHERE id = $1 AND activity_id = $2
		FOR UPDATE
	`, id, activityID)
	return app, err
}
