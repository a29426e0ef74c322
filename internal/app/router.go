package app

import (
	"database/sql"
	"net/http"
	"time"

	"examdesk/internal/answer"
	"examdesk/internal/auth"
	"examdesk/internal/exam"
	"examdesk/internal/question"
	"examdesk/internal/report"

	"examdesk/internal/app/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	authSvc := auth.NewService(db, auth.ServiceConfig{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       time.Duration(cfg.JWTTTLMinutes) * time.Minute,
		BootstrapToken: cfg.BootstrapToken,
	})
	authHandler := auth.NewHandler(authSvc)

	examSvc := exam.NewService(db, cfg.DefaultExamMinutes)
	examHandler := exam.NewHandler(examSvc)

	questionSvc := question.NewService(db)
	questionHandler := question.NewHandler(questionSvc)

	answerSvc := answer.NewService(db)
	answerHandler := answer.NewHandler(answerSvc)

	reportSvc := report.NewService(db)
	reportHandler := report.NewHandler(reportSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/bootstrap/init", authHandler.BootstrapInit)

		api.Group(func(limited chi.Router) {
			limited.Use(RateLimitMiddleware(authLimiter))
			limited.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)

			secure.Get("/exams", examHandler.ListOpen)
			secure.Get("/exams/{id}", examHandler.Get)
			secure.Get("/exams/{examID}/questions", questionHandler.ListByExamPublic)
			secure.Post("/exams/{examID}/answers", answerHandler.Start)
			secure.Get("/exams/{examID}/answers/me", answerHandler.Mine)
			secure.Put("/answers/{id}/progress", answerHandler.Autosave)
			secure.Post("/answers/{id}/submit", answerHandler.Submit)

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles("admin"))

				admin.Post("/admin/users", authHandler.CreateUser)
				admin.Get("/admin/users", authHandler.ListUsers)

				admin.Get("/admin/exams", examHandler.ListAdmin)
				admin.Post("/admin/exams", examHandler.Create)
				admin.Get("/admin/exams/{id}", examHandler.Get)
				admin.Put("/admin/exams/{id}", examHandler.Update)
				admin.Delete("/admin/exams/{id}", examHandler.Delete)

				admin.Get("/admin/exams/{examID}/questions", questionHandler.ListByExam)
				admin.Post("/admin/questions", questionHandler.Create)
				admin.Get("/admin/questions/{id}", questionHandler.Get)
				admin.Put("/admin/questions/{id}", questionHandler.Update)
				admin.Delete("/admin/questions/{id}", questionHandler.Delete)

				admin.Get("/admin/exams/{examID}/answers", answerHandler.ListByExam)
				admin.Get("/admin/exams/{examID}/report", reportHandler.Summary)
				admin.Get("/admin/exams/{examID}/export", reportHandler.Export)
			})
		})
	})

	return r
}
