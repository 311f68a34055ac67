// Package api assembles the HTTP surface: routes, auth and the middleware chain.
package api

import (
	"net/http"
	"strings"

	"github.com/dvloznov/bank-notifier/internal/api/handlers"
	"github.com/dvloznov/bank-notifier/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Routes holds the handlers mounted by NewHandler.
type Routes struct {
	Notifications *handlers.NotificationsHandler
	Health        *handlers.HealthHandler
	Jobs          *handlers.JobsHandler
	Requests      *handlers.RequestsHandler

	BasicAuthUser string
	BasicAuthPass string
}

// NewHandler returns the fully wrapped HTTP handler. Everything except the
// health check requires basic auth.
func NewHandler(rt Routes, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.BasicAuth(rt.BasicAuthUser, rt.BasicAuthPass)

	mux.Handle("/api", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.Notifications.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Health.Health(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.Handle("/api/jobs", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Jobs.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/jobs/", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		rt.Jobs.GetJob(w, r, jobID)
	})))

	mux.Handle("/api/requests", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Requests.ListRequests(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/requests/", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/requests/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Request ID is required")
			return
		}
		rt.Requests.GetRequest(w, r, id)
	})))

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(mux),
		),
	)
}
