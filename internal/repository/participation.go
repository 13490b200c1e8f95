package repository

import (
	"context"
	"time"

	"volunteerhub/internal/model"
)

// UpsertParticipation replaces any prior record for the same pair.
func (s *Store) UpsertParticipation(ctx context.Context, p model.Participation) error {
	_, err := s.exec(ctx, `
		INSERT INTO activity_participation (activity_id, account_id, hours, points, verified_by, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (activity_id, account_id) DO UPDATE
		SET hours = EXCLUDED.hours,
		    points = EXCLUDED.points,
		    verified_by = EXCLUDED.verified_by,
		    verified_at = EXCLUDED.verified_at
	`, p.ActivityID, p.AccountID, p.Hours, p.Points, p.VerifiedBy, p.VerifiedAt)
	return err
}

// UpsertParticipationByStatus writes one record per application of the
// activity in the given status, in a single statement.
func (s *Store) UpsertParticipationByStatus(ctx context.Context, activityID string, status model.ApplicationStatus, hours, points float64, verifiedBy string, now time.Time) (int64, error) {
	return s.exec(ctx, `
		INSERT INTO activity_participation (activity_id, account_id, hours, points, verified_by, verified_at)
		SELECT ap.activity_id, ap.account_id, $3, $4, $5, $6
		FROM activity_applications ap
		WHERE ap.activity_id = $1 AND ap.status = $2
		ON CONFLICT (activity_id, account_id) DO UPDATE
		SET hours = EXCLUDED.hours,
		    points = EXCLUDED.points,
		    verified_by = EXCLUDED.verified_by,
		    verified_at = EXCLUDED.verified_at
	`, activityID, status, hours, points, verifiedBy, now)
}

func (s *Store) ListParticipation(ctx context.Context, activityID string) ([]model.Participation, error) {
	var records []model.Participation
	err := s.selectAll(ctx, &records, `
		SELECT activity_id, account_id, hours, points, verified_by, verified_at
		FROM activity_participation
		WHERE activity_id = $1
		ORDER BY verified_at, account_id
	`, activityID)
	return records, err
}

func (s *Store) ParticipationTotals(ctx context.Context, accountID string) (model.ParticipationTotals, error) {
	var totals model.ParticipationTotals
	err := s.get(ctx, &totals, `
		SELECT COALESCE(sum(hours), 0) AS total_hours, COALESCE(sum(points), 0) AS total_points
		FROM activity_participation
		WHERE account_id = $1
	`, accountID)
	return totals, err
}

func (s *Store) PersonalSummary(ctx context.Context, accountID string, now time.Time) (model.PersonalSummary, error) {
	var summary model.PersonalSummary
	err := s.get(ctx, &summary, `
		SELECT
			(SELECT count(*) FROM activity_applications WHERE account_id = $1) AS registered_count,
			(SELECT count(*) FROM activity_applications
			 WHERE account_id = $1 AND status IN `+seatStatuses+`) AS approved_count,
			(SELECT count(*) FROM activity_applications
			 WHERE account_id = $1 AND status = 'ATTENDED') AS attended_count,
			(SELECT count(*) FROM activity_applications ap
			 JOIN activities act ON act.id = ap.activity_id
			 WHERE ap.account_id = $1 AND ap.status IN `+seatStatuses+`
			   AND act.status = 'APPROVED' AND act.start_time > $2) AS upcoming_activities,
			(SELECT COALESCE(sum(hours), 0) FROM activity_participation WHERE account_id = $1) AS total_hours,
			(SELECT COALESCE(sum(points), 0) FROM activity_participation WHERE account_id = $1) AS total_points
	`, accountID, now)
	return summary, err
}
