package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"volunteerhub/internal/account"
	"volunteerhub/internal/activity"
	"volunteerhub/internal/config"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
	"volunteerhub/internal/session"
)

type Server struct {
	cfg        config.Config
	store      *repository.Store
	sessions   *session.Manager
	accounts   *account.Manager
	activities *activity.Manager
}

func NewServer(cfg config.Config, store *repository.Store, sessions *session.Manager, accounts *account.Manager, activities *activity.Manager) *Server {
	return &Server{
		cfg:        cfg,
		store:      store,
		sessions:   sessions,
		accounts:   accounts,
		activities: activities,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	if s.cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
	}
	r.Use(instrument)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope{"success": true, "status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	credentialLimit := httprate.LimitByIP(20, time.Minute)
	r.Route("/auth", func(r chi.Router) {
		r.With(credentialLimit).Post("/register", s.handleRegister)
		r.With(credentialLimit).Post("/login", s.handleLogin)
		r.With(s.authMiddleware).Post("/logout", s.handleLogout)
		r.With(s.authMiddleware).Post("/logout-all", s.handleLogoutAll)
		r.With(s.authMiddleware).Get("/me", s.handleMe)
	})

	staffOrAdmin := s.requireRole(model.RoleStaff, model.RoleAdmin)
	adminOnly := s.requireRole(model.RoleAdmin)

	r.Route("/activities", func(r chi.Router) {
		r.With(s.optionalAuth).Get("/", s.handleListActivities)
		r.With(s.optionalAuth).Get("/approved", s.handleApprovedActivities)
		r.With(s.authMiddleware).Get("/my", s.handleMyActivities)
		r.With(s.authMiddleware, staffOrAdmin).Get("/my-created", s.handleMyCreatedActivities)
		r.With(s.authMiddleware).Get("/summary", s.handleSummary)
		r.With(s.authMiddleware, staffOrAdmin).Get("/staff/summary", s.handleStaffSummary)
		r.With(s.authMiddleware, staffOrAdmin).Post("/", s.handleCreateActivity)

		r.Route("/{activityID}", func(r chi.Router) {
			r.With(s.optionalAuth).Get("/", s.handleGetActivity)
			r.With(s.authMiddleware).Put("/", s.handleEditActivity)
			r.With(s.authMiddleware).Delete("/", s.handleDeleteActivity)
			r.With(s.authMiddleware).Put("/status", s.handleUpdateStatus)
			r.With(s.authMiddleware, adminOnly).Post("/approve", s.handleApproveActivity)

			r.With(s.authMiddleware).Post("/apply", s.handleApply)
			r.With(s.authMiddleware).Delete("/apply", s.handleCancelApplication)
			r.With(s.authMiddleware).Post("/toggle", s.handleToggle)

			r.With(s.authMiddleware).Get("/applicants", s.handleListApplicants)
			r.With(s.authMiddleware).Post("/applicants/{applicationID}/approve", s.decision("application approved", s.activities.ApproveApplicant))
			r.With(s.authMiddleware).Post("/applicants/{applicationID}/reject", s.decision("application rejected", s.activities.RejectApplicant))
			r.With(s.authMiddleware).Post("/applicants/{applicationID}/attend", s.decision("attendance recorded", s.activities.MarkAttended))
			r.With(s.authMiddleware).Post("/applicants/{applicationID}/score", s.handleScoreApplicant)
			r.With(s.authMiddleware).Post("/attendees/score", s.handleScoreAttendees)
			r.With(s.authMiddleware).Get("/participation", s.handleParticipation)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(staffOrAdmin).Get("/", s.handleListUsers)
		r.Patch("/me", s.handleUpdateMe)
		r.Get("/{userID}", s.handleGetUser)
		r.With(adminOnly).Patch("/{userID}/role", s.handleChangeRole)
		r.With(adminOnly).Get("/{userID}/roles", s.handleRoleHistory)
	})

	r.Route("/user-ban", func(r chi.Router) {
		r.Use(s.authMiddleware, adminOnly)
		r.Post("/", s.handleCreateBan)
		r.Patch("/", s.handleDeactivateBan)
		r.Get("/", s.handleListBans)
	})

	r.Get("/faculties", s.handleListFaculties)
	r.Get("/faculties/{facultyID}", s.handleGetFaculty)
	r.Get("/faculties/{facultyID}/majors", s.handleFacultyMajors)
	r.Get("/majors", s.handleListMajors)
	r.Get("/majors/{majorID}", s.handleGetMajor)

	return otelhttp.NewHandler(r, "volunteerhub",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	ok(w, http.StatusOK, envelope{
		"message": "volunteerhub api",
		"data": map[string][]string{
			"auth":       {"/auth/register", "/auth/login", "/auth/logout", "/auth/logout-all", "/auth/me"},
			"activities": {"/activities", "/activities/approved", "/activities/my", "/activities/my-created", "/activities/summary", "/activities/staff/summary", "/activities/{id}"},
			"users":      {"/users", "/users/me", "/users/{id}", "/users/{id}/role"},
			"bans":       {"/user-ban"},
			"reference":  {"/faculties", "/faculties/{id}", "/faculties/{id}/majors", "/majors", "/majors/{id}"},
			"ops":        {"/health", "/readyz", "/metrics"},
		},
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, envelope{"success": false, "message": "database unavailable"})
		return
	}
	ok(w, http.StatusOK, envelope{"status": "ready"})
}
