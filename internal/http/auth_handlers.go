package http

import (
	"net/http"
	"strings"

	"volunteerhub/internal/account"
	"volunteerhub/internal/session"
)

type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	StudentID *string `json:"student_id"`
	FacultyID *int64  `json:"faculty_id"`
	MajorID   *int64  `json:"major_id"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	StudentID  string `json:"student_id"`
	Password   string `json:"password"`
}

func authPayload(issued session.Issued) envelope {
	return envelope{
		"user":       mapAccount(issued.Account),
		"token":      issued.Token,
		"expires_at": issued.ExpiresAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	issued, err := s.accounts.Register(r.Context(), account.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		StudentID: req.StudentID,
		FacultyID: req.FacultyID,
		MajorID:   req.MajorID,
	}, clientInfo(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"message": "registration successful", "data": authPayload(issued)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(req.StudentID)
	}

	issued, err := s.accounts.Login(r.Context(), identifier, req.Password, clientInfo(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "login successful", "data": authPayload(issued)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "logged out"})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	revoked, err := s.sessions.RevokeAll(r.Context(), actorFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "logged out from all devices", "data": envelope{"revoked": revoked}})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.accounts.Me(r.Context(), actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": meResponse{
		userResponse: mapProfile(me.Profile),
		TotalHours:   me.Totals.Hours,
		TotalPoints:  me.Totals.Points,
	}})
}
