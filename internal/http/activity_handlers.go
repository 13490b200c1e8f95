package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"volunteerhub/internal/activity"
	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
)

type createActivityRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Location        *string   `json:"location"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants"`
}

type editActivityRequest struct {
	Title           *string               `json:"title"`
	Description     *string               `json:"description"`
	Category        *string               `json:"category"`
	Location        *string               `json:"location"`
	StartTime       *time.Time            `json:"start_time"`
	EndTime         *time.Time            `json:"end_time"`
	MaxParticipants *int                  `json:"max_participants"`
	Status          *model.ActivityStatus `json:"status"`
}

type statusRequest struct {
	Status model.ActivityStatus `json:"status"`
}

type approveRequest struct {
	Approved *bool `json:"approved"`
}

type scoreRequest struct {
	Hours  *float64 `json:"hours"`
	Points *float64 `json:"points"`
}

func (req scoreRequest) score() (activity.Score, error) {
	if req.Hours == nil || req.Points == nil {
		return activity.Score{}, apperr.Invalid("hours and points are required")
	}
	return activity.Score{Hours: *req.Hours, Points: *req.Points}, nil
}

func activityQuery(r *http.Request) activity.Query {
	q := r.URL.Query()
	return activity.Query{
		Category: strings.TrimSpace(q.Get("category")),
		Status:   model.ActivityStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 0),
	}
}

func writeActivityPage(w http.ResponseWriter, page activity.Page) {
	items := mapActivityViews(page.Items, time.Now())
	paged(w, items, len(items), page.Total, page.Page, page.Limit)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	page, err := s.activities.List(r.Context(), viewerFrom(r), activityQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeActivityPage(w, page)
}

func (s *Server) handleApprovedActivities(w http.ResponseWriter, r *http.Request) {
	page, err := s.activities.Approved(r.Context(), viewerFrom(r), activityQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeActivityPage(w, page)
}

func (s *Server) handleMyActivities(w http.ResponseWriter, r *http.Request) {
	views, err := s.activities.Mine(r.Context(), actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := mapActivityViews(views, time.Now())
	ok(w, http.StatusOK, envelope{"data": items, "count": len(items)})
}

func (s *Server) handleMyCreatedActivities(w http.ResponseWriter, r *http.Request) {
	page, err := s.activities.Created(r.Context(), actorFrom(r), activityQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeActivityPage(w, page)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.activities.Summary(r.Context(), actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": summary})
}

func (s *Server) handleStaffSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.activities.StaffSummary(r.Context(), actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": summary})
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.activities.Create(r.Context(), actorFrom(r), activity.Draft{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Location:        req.Location,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	message := "activity created and awaiting approval"
	if view.Status == model.ActivityApproved {
		message = "activity created and approved"
	}
	ok(w, http.StatusCreated, envelope{"message": message, "data": mapActivityView(view, time.Now())})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.activities.Get(r.Context(), id, viewerFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": mapActivityView(view, time.Now())})
}

func (s *Server) handleEditActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req editActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Status != nil {
		normalized := model.ActivityStatus(strings.ToUpper(string(*req.Status)))
		req.Status = &normalized
	}
	view, err := s.activities.Edit(r.Context(), id, actorFrom(r), activity.Patch{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Location:        req.Location,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Status:          req.Status,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "activity updated", "data": mapActivityView(view, time.Now())})
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.activities.Delete(r.Context(), id, actorFrom(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "activity deleted"})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	to := model.ActivityStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if !to.Valid() {
		s.fail(w, r, apperr.Invalid("invalid activity status"))
		return
	}

	updated, recorded, err := s.activities.UpdateStatus(r.Context(), id, actorFrom(r), to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body := envelope{"message": "activity status updated", "data": mapActivity(updated, time.Now())}
	if to == model.ActivityCompleted {
		body["participation_recorded"] = recorded
	}
	ok(w, http.StatusOK, body)
}

func (s *Server) handleApproveActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Approved == nil {
		s.fail(w, r, apperr.Invalid("approved is required"))
		return
	}

	updated, err := s.activities.Approve(r.Context(), id, actorFrom(r), *req.Approved)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	message := "activity rejected"
	if *req.Approved {
		message = "activity approved"
	}
	ok(w, http.StatusOK, envelope{"message": message, "data": mapActivity(updated, time.Now())})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	application, err := s.activities.Apply(r.Context(), id, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"message": "application submitted", "data": mapApplication(application)})
}

func (s *Server) handleCancelApplication(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.activities.Cancel(r.Context(), id, actorFrom(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "application cancelled"})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	registered, application, err := s.activities.Toggle(r.Context(), id, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !registered {
		ok(w, http.StatusOK, envelope{"message": "application cancelled", "data": envelope{"registered": false}})
		return
	}
	ok(w, http.StatusCreated, envelope{
		"message": "application submitted",
		"data":    envelope{"registered": true, "application": mapApplication(*application)},
	})
}

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := model.ApplicationStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	applicants, err := s.activities.Applicants(r.Context(), id, actorFrom(r), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := mapApplicants(applicants)
	ok(w, http.StatusOK, envelope{"data": items, "count": len(items)})
}

type decideFunc func(ctx context.Context, activityID, applicationID string, actor model.Actor) (model.Application, error)

// decision serves the applicant approve, reject and attend routes.
func (s *Server) decision(message string, decide decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, err := uuidParam(r, "activityID", "activity")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		applicationID, err := uuidParam(r, "applicationID", "application")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		application, err := decide(r.Context(), activityID, applicationID, actorFrom(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ok(w, http.StatusOK, envelope{"message": message, "data": mapApplication(application)})
	}
}

func (s *Server) handleScoreApplicant(w http.ResponseWriter, r *http.Request) {
	activityID, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applicationID, err := uuidParam(r, "applicationID", "application")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	score, err := req.score()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	record, err := s.activities.ScoreOne(r.Context(), activityID, applicationID, actorFrom(r), score)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "participation recorded", "data": mapParticipation(record)})
}

func (s *Server) handleScoreAttendees(w http.ResponseWriter, r *http.Request) {
	activityID, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	score, err := req.score()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	recorded, err := s.activities.ScoreAll(r.Context(), activityID, actorFrom(r), score)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "participation recorded", "data": envelope{"recorded": recorded}})
}

func (s *Server) handleParticipation(w http.ResponseWriter, r *http.Request) {
	activityID, err := uuidParam(r, "activityID", "activity")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	records, err := s.activities.Participation(r.Context(), activityID, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]participationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, mapParticipation(record))
	}
	ok(w, http.StatusOK, envelope{"data": items, "count": len(items)})
}
