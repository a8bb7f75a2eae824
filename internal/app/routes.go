package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/letterbox/letterbox/internal/config"
	"github.com/letterbox/letterbox/internal/rest"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Letters
	r.HandleFunc("/api/letters/{type}", deps.LetterHandler.CreateLetter).Methods("POST")
	r.HandleFunc("/api/letters/{type}", deps.LetterHandler.ListLetters).Methods("GET")
	r.HandleFunc("/api/letters/{type}/export.csv", deps.LetterHandler.ExportLetters).Methods("GET")
	r.HandleFunc("/api/letters/{type}/{id}", deps.LetterHandler.GetLetter).Methods("GET")
	r.HandleFunc("/api/letters/{type}/{id}", deps.LetterHandler.DeleteLetter).Methods("DELETE")
	r.HandleFunc("/api/letters/{type}/{id}/handled", deps.LetterHandler.SetHandled).Methods("PATCH")

	// Calendar
	r.HandleFunc("/api/calendar/events", deps.CalendarHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/calendar/events.ics", deps.CalendarHandler.GetEventsICS).Methods("GET")
	r.HandleFunc("/api/calendar/upcoming", deps.CalendarHandler.GetUpcoming).Methods("GET")

	// Notifications
	r.HandleFunc("/api/notifications", deps.NotificationHandler.List).Methods("GET")
	r.HandleFunc("/api/notifications/unread-count", deps.NotificationHandler.UnreadCount).Methods("GET")
	r.HandleFunc("/api/notifications/read-all", deps.NotificationHandler.MarkAllRead).Methods("PATCH")
	r.HandleFunc("/api/notifications/{id}/read", deps.NotificationHandler.MarkRead).Methods("PATCH")
	r.HandleFunc("/api/notifications/{id}", deps.NotificationHandler.Delete).Methods("DELETE")

	// Jobs
	r.HandleFunc("/api/jobs", deps.JobHandler.ListJobs).Methods("GET")
	r.HandleFunc("/api/jobs/{name}/run", deps.JobHandler.RunJob).Methods("POST")

	// Operations
	r.HandleFunc("/health", health(deps)).Methods("GET")
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
}

func health(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.DB.Ping(ctx); err != nil {
			log.Warnf("health check failed: %v", err)
			rest.WriteError(w, http.StatusServiceUnavailable, "Database unavailable", "")
			return
		}
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
