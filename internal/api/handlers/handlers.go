package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/bank-notifier/internal/api/middleware"
	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/dvloznov/bank-notifier/internal/ingest"
	"github.com/dvloznov/bank-notifier/internal/jobs"
	"github.com/dvloznov/bank-notifier/internal/requestlog"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Processor is the part of *ingest.Service the notifications handler needs.
type Processor interface {
	Process(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// RequestLog is the part of *requestlog.Store the requests handler needs.
type RequestLog interface {
	Get(ctx context.Context, id string) (*requestlog.Entry, error)
	List(ctx context.Context, f requestlog.Filter) ([]*requestlog.Entry, error)
}

// NotificationsHandler accepts notifications forwarded by the phone.
type NotificationsHandler struct {
	svc       Processor
	sinkLabel string
	log       zerolog.Logger
}

// NewNotificationsHandler creates a new notifications handler. sinkLabel is
// the human name of the destination used in success messages, e.g. "Notion".
func NewNotificationsHandler(svc Processor, sinkLabel string, log zerolog.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		svc:       svc,
		sinkLabel: sinkLabel,
		log:       log,
	}
}

type notificationRequest struct {
	Package string      `json:"package"`
	Text    string      `json:"text"`
	Time    epochMillis `json:"time"`
}

// epochMillis accepts a JSON number or a numeric string. Zero counts as absent.
type epochMillis struct {
	ms int64
}

func (e *epochMillis) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		return nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("time must be epoch milliseconds, got %s", b)
		}
		ms = int64(f)
	}
	e.ms = ms
	return nil
}

func (e epochMillis) set() bool { return e.ms != 0 }

// Create handles POST /api
func (h *NotificationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.With().Str("http_request_id", middleware.GetRequestID(ctx)).Logger()

	var req notificationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid notification body")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Package == "" || req.Text == "" || !req.Time.set() {
		middleware.WriteError(w, http.StatusBadRequest, "Missing package, text, or time in request body.")
		return
	}

	result, err := h.svc.Process(ctx, ingest.Request{
		Package: req.Package,
		Text:    req.Text,
		Time:    time.UnixMilli(req.Time.ms).UTC(),
	})
	if err != nil {
		h.writeProcessError(w, log, req.Package, err)
		return
	}

	if result.Queued {
		middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"success":    true,
			"message":    fmt.Sprintf("Request accepted for delivery to %s.", h.sinkLabel),
			"requestId":  result.RequestID,
			"jobId":      result.JobID,
			"parsedData": result.Transaction,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"message":      fmt.Sprintf("Request processed and saved to %s.", h.sinkLabel),
		"requestId":    result.RequestID,
		"notionPageId": result.SinkID,
		"parsedData":   result.Transaction,
	})
}

func (h *NotificationsHandler) writeProcessError(w http.ResponseWriter, log zerolog.Logger, pkg string, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnparsable):
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Could not parse notification for package: %s", pkg))
	case errors.Is(err, domain.ErrInvalidTransaction):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Parsed transaction failed validation.")
	case errors.Is(err, ingest.ErrSinkFailure):
		log.Error().Err(err).Msg("Failed to deliver transaction")
		middleware.WriteError(w, http.StatusBadGateway, fmt.Sprintf("Failed to save transaction to %s.", h.sinkLabel))
	case errors.Is(err, jobs.ErrQueueClosed):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Server is shutting down.")
	default:
		log.Error().Err(err).Msg("Failed to process notification")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// HealthHandler reports liveness and the registered packages.
type HealthHandler struct {
	packages func() []string
	now      func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(packages func() []string) *HealthHandler {
	return &HealthHandler{packages: packages, now: time.Now}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"packages":  h.packages(),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Package: query.Get("package"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	if jobsList == nil {
		jobsList = []*jobs.DeliverTransactionJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// RequestsHandler exposes the request journal. A nil store means the journal is disabled.
type RequestsHandler struct {
	store RequestLog
	log   zerolog.Logger
}

// NewRequestsHandler creates a new requests handler.
func NewRequestsHandler(store RequestLog, log zerolog.Logger) *RequestsHandler {
	return &RequestsHandler{
		store: store,
		log:   log,
	}
}

var knownStatuses = map[requestlog.Status]bool{
	requestlog.StatusUnmatched:  true,
	requestlog.StatusInvalid:    true,
	requestlog.StatusQueued:     true,
	requestlog.StatusSaved:      true,
	requestlog.StatusSinkFailed: true,
}

// ListRequests handles GET /api/requests
func (h *RequestsHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Request log is disabled")
		return
	}

	query := r.URL.Query()
	filter := requestlog.Filter{
		Status:  requestlog.Status(query.Get("status")),
		Package: query.Get("package"),
	}
	if filter.Status != "" && !knownStatuses[filter.Status] {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown status")
		return
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list requests")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list requests")
		return
	}

	if entries == nil {
		entries = []*requestlog.Entry{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": entries,
		"count":    len(entries),
	})
}

// GetRequest handles GET /api/requests/{id}
func (h *RequestsHandler) GetRequest(w http.ResponseWriter, r *http.Request, id string) {
	if h.store == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Request log is disabled")
		return
	}

	entry, err := h.store.Get(r.Context(), id)
	if errors.Is(err, requestlog.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Request not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("request_id", id).Msg("Failed to get request")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get request")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, entry)
}
