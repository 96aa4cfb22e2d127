package server

import (
	"net/http"
	"time"

	"github.com/diewo77/interflow/auth"
	"github.com/diewo77/interflow/internal/config"
	"github.com/diewo77/interflow/internal/handlers"
	mw "github.com/diewo77/interflow/internal/middleware"
	"github.com/diewo77/interflow/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewRouter wires every route of the application onto a chi mux.
func NewRouter(cfg config.Config, db *gorm.DB, log zerolog.Logger) http.Handler {
	tickets := services.NewTicketService(db, log)
	grants := services.NewAccessService(db)
	groups := services.NewGroupService(db)

	pages := handlers.NewPageHandler(db)
	authH := handlers.NewAuthHandler(db)
	ticketH := handlers.NewTicketHandler(db, tickets, log)
	groupH := handlers.NewGroupHandler(groups)
	accessH := handlers.NewAccessHandler(tickets, grants, log)

	r := chi.NewRouter()
	r.Use(mw.Recoverer(log))
	r.Use(mw.RequestLogger(log))
	r.Use(mw.Prefs)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: cfg.CORSOrigin != "*",
		MaxAge:           300,
	}))
	r.Use(auth.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	fs := http.StripPrefix("/static/", http.FileServer(http.Dir("static")))
	r.Handle("/static/*", fs)

	r.Get("/", pages.Index)
	r.Get("/signup", authH.Signup)
	r.Post("/signup", authH.Signup)
	r.Get("/login", authH.Login)
	r.Post("/login", authH.Login)
	r.Post("/logout", authH.Logout)
	r.Get("/logout", authH.Logout)

	// Public visitor flow. The lookup endpoint is the only brute-forceable
	// surface, so it gets a per-IP rate limit.
	r.Group(func(r chi.Router) {
		r.Get("/intervention", accessH.Entry)
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/intervention", accessH.Lookup)
		r.Get("/intervention/form/{id}", accessH.FormView)
		r.Post("/intervention/form/{id}", accessH.FormSubmit)
		r.Get("/intervention/form/{id}/pdf", accessH.FormPDF)
	})

	// Authenticated back office.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/dashboard", pages.Dashboard)

		r.Get("/tickets", ticketH.List)
		r.Get("/tickets/new", ticketH.New)
		r.Post("/tickets", ticketH.Create)
		r.Get("/tickets/{id}", ticketH.Get)
		r.Post("/tickets/update", ticketH.Update)
		r.Post("/tickets/delete", ticketH.Delete)
		r.Get("/tickets/pdf", ticketH.PDF)

		r.Get("/groups", groupH.List)
		r.Post("/groups", groupH.Create)
		r.Post("/groups/update", groupH.Update)
		r.Post("/groups/delete", groupH.Delete)
	})

	return r
}
