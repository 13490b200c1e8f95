package http

import (
	"time"

	"volunteerhub/internal/activity"
	"volunteerhub/internal/model"
)

type userResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	StudentID    *string    `json:"student_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         model.Role `json:"role"`
	FacultyID    *int64     `json:"faculty_id"`
	FacultyName  *string    `json:"faculty_name,omitempty"`
	MajorID      *int64     `json:"major_id"`
	MajorName    *string    `json:"major_name,omitempty"`
	ProfileImage *string    `json:"profile_image"`
	IsBanned     bool       `json:"is_banned"`
	BanCount     int        `json:"ban_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func mapAccount(a model.Account) userResponse {
	return userResponse{
		ID:           a.ID,
		Email:        a.Email,
		StudentID:    a.StudentID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Role:         a.Role,
		FacultyID:    a.FacultyID,
		MajorID:      a.MajorID,
		ProfileImage: a.ProfileImage,
		IsBanned:     a.IsBanned,
		BanCount:     a.BanCount,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func mapProfile(p model.AccountProfile) userResponse {
	out := mapAccount(p.Account)
	out.FacultyName = p.FacultyName
	out.MajorName = p.MajorName
	return out
}

func mapProfiles(items []model.AccountProfile) []userResponse {
	out := make([]userResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapProfile(item))
	}
	return out
}

type meResponse struct {
	userResponse
	TotalHours  float64 `json:"total_hours"`
	TotalPoints float64 `json:"total_points"`
}

type activityResponse struct {
	ID                  string                   `json:"id"`
	Title               string                   `json:"title"`
	Description         string                   `json:"description"`
	Category            string                   `json:"category"`
	Location            *string                  `json:"location"`
	StartTime           time.Time                `json:"start_time"`
	EndTime             time.Time                `json:"end_time"`
	DurationHours       float64                  `json:"duration_hours"`
	MaxParticipants     int                      `json:"max_participants"`
	CurrentParticipants int                      `json:"current_participants"`
	Status              model.ActivityStatus     `json:"status"`
	IsActive            bool                     `json:"is_active"`
	CreatedBy           string                   `json:"created_by"`
	CreatorName         string                   `json:"creator_name,omitempty"`
	IsRegistered        bool                     `json:"is_registered"`
	ApplicationStatus   *model.ApplicationStatus `json:"application_status"`
	AppliedAt           *time.Time               `json:"applied_at,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

func mapActivity(a model.Activity, now time.Time) activityResponse {
	return activityResponse{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Category:        a.Category,
		Location:        a.Location,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		DurationHours:   a.DurationHours(),
		MaxParticipants: a.MaxParticipants,
		Status:          a.Status,
		IsActive:        activity.IsActive(a, now),
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func mapActivityView(v model.ActivityView, now time.Time) activityResponse {
	out := mapActivity(v.Activity, now)
	out.CreatorName = v.CreatorName
	out.CurrentParticipants = v.CurrentParticipants
	out.ApplicationStatus = v.ApplicationStatus
	out.AppliedAt = v.AppliedAt
	out.IsRegistered = v.ApplicationStatus != nil
	return out
}

func mapActivityViews(items []model.ActivityView, now time.Time) []activityResponse {
	out := make([]activityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapActivityView(item, now))
	}
	return out
}

type applicationResponse struct {
	ID         string                  `json:"id"`
	ActivityID string                  `json:"activity_id"`
	UserID     string                  `json:"user_id"`
	Status     model.ApplicationStatus `json:"status"`
	AppliedAt  time.Time               `json:"applied_at"`
	DecidedBy  *string                 `json:"decided_by"`
	DecidedAt  *time.Time              `json:"decided_at"`
}

func mapApplication(a model.Application) applicationResponse {
	return applicationResponse{
		ID:         a.ID,
		ActivityID: a.ActivityID,
		UserID:     a.AccountID,
		Status:     a.Status,
		AppliedAt:  a.AppliedAt,
		DecidedBy:  a.DecidedBy,
		DecidedAt:  a.DecidedAt,
	}
}

type applicantResponse struct {
	applicationResponse
	StudentID   *string `json:"student_id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	FacultyName *string `json:"faculty_name"`
	MajorName   *string `json:"major_name"`
}

func mapApplicants(items []model.Applicant) []applicantResponse {
	out := make([]applicantResponse, 0, len(items))
	for _, item := range items {
		out = append(out, applicantResponse{
			applicationResponse: mapApplication(item.Application),
			StudentID:           item.StudentID,
			FirstName:           item.FirstName,
			LastName:            item.LastName,
			Email:               item.Email,
			FacultyName:         item.FacultyName,
			MajorName:           item.MajorName,
		})
	}
	return out
}

type participationResponse struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Hours      float64   `json:"hours"`
	Points     float64   `json:"points"`
	VerifiedBy string    `json:"verified_by"`
	VerifiedAt time.Time `json:"verified_at"`
}

func mapParticipation(p model.Participation) participationResponse {
	return participationResponse{
		ActivityID: p.ActivityID,
		UserID:     p.AccountID,
		Hours:      p.Hours,
		Points:     p.Points,
		VerifiedBy: p.VerifiedBy,
		VerifiedAt: p.VerifiedAt,
	}
}
