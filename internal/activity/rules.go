package activity

import (
	"strings"
	"time"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
)

// CheckTransition enforces the activity state machine. COMPLETED may be
// re-entered so the participation ledger can be recomputed.
func CheckTransition(from, to model.ActivityStatus) error {
	if !to.Valid() {
		return apperr.Invalid("invalid activity status")
	}
	switch {
	case from == model.ActivityPending && (to == model.ActivityApproved || to == model.ActivityRejected):
		return nil
	case from == model.ActivityApproved && (to == model.ActivityCompleted || to == model.ActivityCancelled):
		return nil
	case from == model.ActivityCompleted && to == model.ActivityCompleted:
		return nil
	}
	return apperr.Conflicting("cannot change activity status from " + string(from) + " to " + string(to))
}

// CheckDecision enforces the application state machine. ATTENDED may be
// re-entered.
func CheckDecision(from, to model.ApplicationStatus) error {
	switch {
	case from == model.ApplicationPending && (to == model.ApplicationApproved || to == model.ApplicationRejected):
		return nil
	case (from == model.ApplicationApproved || from == model.ApplicationAttended) && to == model.ApplicationAttended:
		return nil
	}
	return apperr.Conflicting("cannot change application status from " + string(from) + " to " + string(to))
}

// CanManage reports whether the actor owns the activity or is an admin.
func CanManage(actor model.Actor, activity model.Activity) bool {
	return actor.IsAdmin() || actor.ID == activity.CreatedBy
}

// CanView reports whether a viewer may see the activity's detail.
func CanView(viewer *model.Actor, activity model.Activity) bool {
	if activity.Status == model.ActivityApproved {
		return true
	}
	if viewer == nil {
		return false
	}
	return viewer.Role.CanManage() || viewer.ID == activity.CreatedBy
}

// HasSeat reports whether another application fits the capacity.
func HasSeat(capacity int, taken int64) bool {
	return taken < int64(capacity)
}

// IsActive reports whether the activity is open and not yet over.
func IsActive(activity model.Activity, now time.Time) bool {
	return activity.Status == model.ActivityApproved && activity.EndTime.After(now)
}

// Draft holds the fields of a new activity.
type Draft struct {
	Title           string
	Description     string
	Category        string
	Location        *string
	StartTime       time.Time
	EndTime         time.Time
	MaxParticipants int
}

func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	if d.Title == "" || d.Description == "" || d.Category == "" || d.StartTime.IsZero() || d.EndTime.IsZero() {
		return apperr.Invalid("title, description, category, start_time and end_time are required")
	}
	if d.MaxParticipants <= 0 {
		return apperr.Invalid("max_participants must be a positive number")
	}
	if !d.StartTime.Before(d.EndTime) {
		return apperr.Invalid("start_time must be before end_time")
	}
	return nil
}

// Patch holds the fields present in an edit request; nil means untouched.
type Patch struct {
	Title           *string
	Description     *string
	Category        *string
	Location        *string
	StartTime       *time.Time
	EndTime         *time.Time
	MaxParticipants *int
	Status          *model.ActivityStatus
}

// Validate checks the patch against the current record, including the time
// window that results from merging the two.
func (p Patch) Validate(current model.Activity) error {
	for _, field := range []*string{p.Title, p.Description, p.Category} {
		if field != nil && strings.TrimSpace(*field) == "" {
			return apperr.Invalid("title, description and category cannot be empty")
		}
	}
	if p.MaxParticipants != nil && *p.MaxParticipants < 0 {
		return apperr.Invalid("max_participants cannot be negative")
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperr.Invalid("invalid activity status")
	}
	start, end := current.StartTime, current.EndTime
	if p.StartTime != nil {
		start = *p.StartTime
	}
	if p.EndTime != nil {
		end = *p.EndTime
	}
	if !start.Before(end) {
		return apperr.Invalid("start_time must be before end_time")
	}
	return nil
}

// Query is a listing request; Page is 1-based.
type Query struct {
	Category string
	Status   model.ActivityStatus
	Search   string
	Page     int
	Limit    int
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

func (q *Query) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
}

func (q Query) offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of annotated activities.
type Page struct {
	Items []model.ActivityView
	Total int64
	Page  int
	Limit int
}

func (p Page) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}
