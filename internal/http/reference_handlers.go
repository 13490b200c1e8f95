package http

import (
	"errors"
	"net/http"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

func (s *Server) handleListFaculties(w http.ResponseWriter, r *http.Request) {
	faculties, err := s.store.ListFaculties(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if faculties == nil {
		faculties = []model.Faculty{}
	}
	ok(w, http.StatusOK, envelope{"data": faculties, "count": len(faculties)})
}

func (s *Server) handleGetFaculty(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "facultyID", "faculty")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	faculty, err := s.store.GetFaculty(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		s.fail(w, r, apperr.Missing("faculty not found"))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": faculty})
}

func (s *Server) handleFacultyMajors(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "facultyID", "faculty")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.store.GetFaculty(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = apperr.Missing("faculty not found")
		}
		s.fail(w, r, err)
		return
	}
	s.writeMajors(w, r, id)
}

func (s *Server) handleListMajors(w http.ResponseWriter, r *http.Request) {
	facultyID := int64(queryInt(r, "faculty_id", 0))
	if facultyID < 0 {
		facultyID = 0
	}
	s.writeMajors(w, r, facultyID)
}

func (s *Server) writeMajors(w http.ResponseWriter, r *http.Request, facultyID int64) {
	majors, err := s.store.ListMajors(r.Context(), facultyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if majors == nil {
		majors = []model.Major{}
	}
	ok(w, http.StatusOK, envelope{"data": majors, "count": len(majors)})
}

func (s *Server) handleGetMajor(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "majorID", "major")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	major, err := s.store.GetMajor(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		s.fail(w, r, apperr.Missing("major not found"))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"data": major})
}
