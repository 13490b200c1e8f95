package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"volunteerhub/internal/account"
	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
)

type updateProfileRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	FacultyID    *int64  `json:"faculty_id"`
	MajorID      *int64  `json:"major_id"`
	ProfileImage *string `json:"profile_image"`
}

type roleRequest struct {
	Role model.Role `json:"role"`
}

type banRequest struct {
	UserID    string     `json:"user_id"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type unbanRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 10, 100)
	result, err := s.accounts.List(r.Context(), actorFrom(r), account.UserQuery{
		Role:   model.Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role")))),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := mapProfiles(result.Items)
	paged(w, items, len(items), result.Total, result.Page, result.Limit)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userID", "user")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	profile, err := s.accounts.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": mapProfile(profile)})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	profile, err := s.accounts.UpdateProfile(r.Context(), actorFrom(r), account.ProfileUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		FacultyID:    req.FacultyID,
		MajorID:      req.MajorID,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "profile updated", "data": mapProfile(profile)})
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userID", "user")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if !role.Valid() {
		s.fail(w, r, apperr.Invalid("role must be STUDENT, STAFF or ADMIN"))
		return
	}

	profile, err := s.accounts.ChangeRole(r.Context(), actorFrom(r), id, role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "role updated", "data": mapProfile(profile)})
}

func (s *Server) handleRoleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userID", "user")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	grants, err := s.accounts.RoleHistory(r.Context(), actorFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": grants, "count": len(grants)})
}

func (s *Server) handleCreateBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Reason) == "" {
		s.fail(w, r, apperr.Invalid("user_id and reason are required"))
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		s.fail(w, r, apperr.Missing("user not found"))
		return
	}

	ban, err := s.accounts.Ban(r.Context(), actorFrom(r), account.BanRequest{
		AccountID: userID.String(),
		Reason:    req.Reason,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"message": "user banned", "data": ban})
}

func (s *Server) handleDeactivateBan(w http.ResponseWriter, r *http.Request) {
	var req unbanRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		s.fail(w, r, apperr.Invalid("email is required"))
		return
	}
	result, err := s.accounts.Unban(r.Context(), actorFrom(r), req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "ban deactivated", "data": result})
}

func (s *Server) handleListBans(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 50, 200)
	accountID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if accountID != "" {
		if _, err := uuid.Parse(accountID); err != nil {
			s.fail(w, r, apperr.Invalid("user_id must be a valid id"))
			return
		}
	}
	bans, total, err := s.accounts.ListBans(r.Context(), actorFrom(r), account.BanQuery{
		ActiveOnly: queryBool(r, "active"),
		AccountID:  accountID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if bans == nil {
		bans = []model.Ban{}
	}
	paged(w, bans, len(bans), total, page, limit)
}
