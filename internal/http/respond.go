package http

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/session"
)

type envelope map[string]any

func ok(w http.ResponseWriter, status int, body envelope) {
	body["success"] = true
	writeJSON(w, status, body)
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
}

func paged(w http.ResponseWriter, data any, count int, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	ok(w, http.StatusOK, envelope{
		"data":       data,
		"count":      count,
		"total":      total,
		"pagination": pagination{CurrentPage: page, PerPage: limit, TotalPages: totalPages},
	})
}

// fail writes the error envelope. Unclassified errors are logged and reported
// without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.Unexpected:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	case apperr.Timeout:
		hlog.FromRequest(r).Warn().Err(err).Msg("request timed out")
	}
	writeJSON(w, kind.Status(), envelope{"success": false, "message": apperr.Message(err)})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is required")
		}
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// uuidParam reads a UUID path parameter. Malformed ids cannot name a record,
// so they are reported as missing.
func uuidParam(r *http.Request, name, what string) (string, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Missing(what + " not found")
	}
	return id.String(), nil
}

func int64Param(r *http.Request, name, what string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Missing(what + " not found")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryBool(r *http.Request, key string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && value
}

// pageParams reads page and limit, clamping them the way the listing
// operations do.
func pageParams(r *http.Request, defLimit, maxLimit int) (int, int) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", defLimit)
	if limit < 1 || limit > maxLimit {
		limit = defLimit
	}
	return page, limit
}

func clientInfo(r *http.Request) session.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return session.ClientInfo{UserAgent: r.UserAgent(), IPAddress: ip}
}
