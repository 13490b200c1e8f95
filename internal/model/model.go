package model

import "time"

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManage reports whether the role may create and run activities.
func (r Role) CanManage() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Actor is the authenticated account performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type Account struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	StudentID    *string   `db:"student_id"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Role         Role      `db:"role"`
	FacultyID    *int64    `db:"faculty_id"`
	MajorID      *int64    `db:"major_id"`
	ProfileImage *string   `db:"profile_image"`
	IsBanned     bool      `db:"is_banned"`
	BanCount     int       `db:"ban_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// AccountProfile is an Account joined with its reference data names.
type AccountProfile struct {
	Account
	FacultyName *string `db:"faculty_name"`
	MajorName   *string `db:"major_name"`
}

type SessionToken struct {
	ID            string     `db:"id"`
	AccountID     string     `db:"account_id"`
	TokenHash     string     `db:"token_hash"`
	IssuedAt      time.Time  `db:"issued_at"`
	ExpiresAt     *time.Time `db:"expires_at"`
	Invalidated   bool       `db:"invalidated"`
	InvalidatedAt *time.Time `db:"invalidated_at"`
	UserAgent     *string    `db:"user_agent"`
	IPAddress     *string    `db:"ip_address"`
}

// Valid reports whether the token is neither invalidated nor expired at now.
func (t SessionToken) Valid(now time.Time) bool {
	if t.Invalidated {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}

type TokenStats struct {
	Total          int64 `db:"total" json:"total"`
	Active         int64 `db:"active" json:"active"`
	Expired        int64 `db:"expired" json:"expired"`
	Invalid        int64 `db:"invalid" json:"invalid"`
	ActiveAccounts int64 `db:"active_accounts" json:"active_accounts"`
}

type RoleGrant struct {
	ID        int64     `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"user_id"`
	Role      Role      `db:"role" json:"role"`
	GrantedBy string    `db:"granted_by" json:"granted_by"`
	GrantedAt time.Time `db:"granted_at" json:"granted_at"`
}

type Ban struct {
	ID        int64      `db:"id" json:"id"`
	AccountID string     `db:"account_id" json:"user_id"`
	Email     string     `db:"email" json:"email"`
	Reason    string     `db:"reason" json:"reason"`
	BannedBy  string     `db:"banned_by" json:"banned_by"`
	BannedAt  time.Time  `db:"banned_at" json:"banned_at"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	BanCount  int        `db:"ban_count" json:"ban_count"`
}

type ActivityStatus string

const (
	ActivityPending   ActivityStatus = "PENDING"
	ActivityApproved  ActivityStatus = "APPROVED"
	ActivityRejected  ActivityStatus = "REJECTED"
	ActivityCompleted ActivityStatus = "COMPLETED"
	ActivityCancelled ActivityStatus = "CANCELLED"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityPending, ActivityApproved, ActivityRejected, ActivityCompleted, ActivityCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves s.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityRejected || s == ActivityCompleted || s == ActivityCancelled
}

type Activity struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	Category        string         `db:"category"`
	Location        *string        `db:"location"`
	StartTime       time.Time      `db:"start_time"`
	EndTime         time.Time      `db:"end_time"`
	MaxParticipants int            `db:"max_participants"`
	Status          ActivityStatus `db:"status"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// DurationHours is the length of the activity window in hours.
func (a Activity) DurationHours() float64 {
	return a.EndTime.Sub(a.StartTime).Hours()
}

// ActivityView is an Activity annotated for a particular viewer.
type ActivityView struct {
	Activity
	CreatorName         string             `db:"creator_name"`
	CurrentParticipants int                `db:"current_participants"`
	ApplicationStatus   *ApplicationStatus `db:"application_status"`
	AppliedAt           *time.Time         `db:"applied_at"`
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
	ApplicationAttended ApplicationStatus = "ATTENDED"
)

// HoldsSeat reports whether the application counts against capacity.
func (s ApplicationStatus) HoldsSeat() bool {
	return s == ApplicationApproved || s == ApplicationAttended
}

type Application struct {
	ID         string            `db:"id"`
	ActivityID string            `db:"activity_id"`
	AccountID  string            `db:"account_id"`
	Status     ApplicationStatus `db:"status"`
	AppliedAt  time.Time         `db:"applied_at"`
	DecidedBy  *string           `db:"decided_by"`
	DecidedAt  *time.Time        `db:"decided_at"`
}

// Applicant is an Application joined with the applicant's account details.
type Applicant struct {
	Application
	StudentID   *string `db:"student_id"`
	FirstName   string  `db:"first_name"`
	LastName    string  `db:"last_name"`
	Email       string  `db:"email"`
	FacultyName *string `db:"faculty_name"`
	MajorName   *string `db:"major_name"`
}

type Participation struct {
	ActivityID string    `db:"activity_id"`
	AccountID  string    `db:"account_id"`
	Hours      float64   `db:"hours"`
	Points     float64   `db:"points"`
	VerifiedBy string    `db:"verified_by"`
	VerifiedAt time.Time `db:"verified_at"`
}

type ParticipationTotals struct {
	Hours  float64 `db:"total_hours"`
	Points float64 `db:"total_points"`
}

type Faculty struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Major struct {
	ID          int64     `db:"id" json:"id"`
	FacultyID   int64     `db:"faculty_id" json:"faculty_id"`
	Name        string    `db:"name" json:"name"`
	FacultyName *string   `db:"faculty_name" json:"faculty_name,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PersonalSummary is a participant's own accrual dashboard.
type PersonalSummary struct {
	RegisteredCount    int64   `db:"registered_count" json:"registered_count"`
	ApprovedCount      int64   `db:"approved_count" json:"approved_count"`
	AttendedCount      int64   `db:"attended_count" json:"attended_count"`
	UpcomingActivities int64   `db:"upcoming_activities" json:"upcoming_activities"`
	TotalHours         float64 `db:"total_hours" json:"total_hours"`
	TotalPoints        float64 `db:"total_points" json:"total_points"`
}

type StaffSummary struct {
	TotalActivities     int64 `db:"total_activities" json:"total_activities"`
	PendingActivities   int64 `db:"pending_activities" json:"pending_activities"`
	PendingApplications int64 `db:"pending_applications" json:"pending_applications"`
	UpcomingActivities  int64 `db:"upcoming_activities" json:"upcoming_activities"`
}
