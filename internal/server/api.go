package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zoomscribe/zoomscribe/internal/config"
	"github.com/zoomscribe/zoomscribe/internal/downloader"
	"github.com/zoomscribe/zoomscribe/internal/instrumentation"
	"github.com/zoomscribe/zoomscribe/internal/logging"
	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

// downloadLookbackDays is the listing window applied to meeting-scoped
// download triggers. Cloud recordings rarely outlive a year of retention.
const downloadLookbackDays = 365

// RecordingLister is the listing surface the API needs from the Zoom client.
type RecordingLister interface {
	ListRecordings(ctx context.Context, filters zoom.Filters) ([]zoom.Recording, error)
}

// ZoomService is the full client surface behind the API: listing plus the
// stream fetching the downloader consumes.
type ZoomService interface {
	RecordingLister
	downloader.Fetcher
}

// API serves the recording query and download-trigger endpoints.
type API struct {
	client    ZoomService
	downloads config.Downloader
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
}

// APIConfig carries the API's dependencies.
type APIConfig struct {
	// Client is the shared Zoom client. Required.
	Client ZoomService

	// Downloads provides the default target directory, overwrite, and
	// concurrency settings for triggered downloads.
	Downloads config.Downloader

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// NewAPI builds the API handler set.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Client == nil {
		return nil, errors.New("server: a zoom client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &instrumentation.Metrics{}
	}
	return &API{
		client:    cfg.Client,
		downloads: cfg.Downloads,
		logger:    logging.WithService(cfg.Logger, "api"),
		metrics:   cfg.Metrics,
		audit:     cfg.Audit,
	}, nil
}

// RegisterEndpoints mounts the API routes on mux, wrapped with request
// metrics.
func (a *API) RegisterEndpoints(mux *http.ServeMux) {
	mux.Handle("/api/recordings", a.instrument("/api/recordings", http.HandlerFunc(a.handleListRecordings)))
	mux.Handle("/api/download", a.instrument("/api/download", http.HandlerFunc(a.handleTriggerDownload)))
}

// apiError is the uniform error payload.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// recordingSummary is the list-view projection of a recording.
type recordingSummary struct {
	UUID            string    `json:"uuid"`
	MeetingID       int64     `json:"meeting_id,omitempty"`
	Topic           string    `json:"topic"`
	HostEmail       string    `json:"host_email,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	AssetCount      int       `json:"asset_count"`
	TotalSizeBytes  int64     `json:"total_size_bytes"`
}

func summarize(rec zoom.Recording) recordingSummary {
	var total int64
	for _, f := range rec.Files {
		total += f.FileSize
	}
	return recordingSummary{
		UUID:            rec.UUID,
		MeetingID:       rec.MeetingID,
		Topic:           rec.Topic,
		HostEmail:       rec.HostEmail,
		StartTime:       rec.StartTime,
		DurationMinutes: rec.DurationMinutes,
		AssetCount:      len(rec.Files),
		TotalSizeBytes:  total,
	}
}

type downloadRequest struct {
	MeetingIDOrUUID string  `json:"meeting_id_or_uuid"`
	Overwrite       *bool   `json:"overwrite"`
	TargetDir       *string `json:"target_dir"`
}

type downloadResponse struct {
	OK            bool   `json:"ok"`
	FilesExpected int    `json:"files_expected"`
	Note          string `json:"note,omitempty"`
}

// handleListRecordings serves GET /api/recordings with from/to/host_email/
// meeting_id query filters.
func (a *API) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Message: "method not allowed"})
		return
	}

	filters, err := parseListFilters(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Message: err.Error()})
		return
	}
	filters.HostEmail = strings.TrimSpace(r.URL.Query().Get("host_email"))
	filters.MeetingID = strings.TrimSpace(r.URL.Query().Get("meeting_id"))

	recordings, err := a.client.ListRecordings(r.Context(), filters)
	if err != nil {
		a.writeZoomError(w, r, err)
		return
	}

	summaries := make([]recordingSummary, 0, len(recordings))
	for _, rec := range recordings {
		summaries = append(summaries, summarize(rec))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleTriggerDownload serves POST /api/download: it resolves the meeting
// identifier over a year-long lookback and runs the download synchronously.
func (a *API) handleTriggerDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Message: "method not allowed"})
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Message: "invalid request body"})
		return
	}
	identifier := strings.TrimSpace(req.MeetingIDOrUUID)
	if identifier == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Message: "meeting_id_or_uuid is required"})
		return
	}

	now := time.Now().UTC()
	recordings, err := a.client.ListRecordings(r.Context(), zoom.Filters{
		From:      now.AddDate(0, 0, -downloadLookbackDays),
		To:        now,
		MeetingID: identifier,
	})
	if err != nil {
		a.writeZoomError(w, r, err)
		return
	}
	if len(recordings) == 0 {
		writeJSON(w, http.StatusNotFound, apiError{Message: "Recording not found", Code: "zoom_not_found"})
		return
	}

	filesExpected := 0
	for _, rec := range recordings {
		filesExpected += len(rec.Files)
	}

	cfg := a.downloads
	if req.TargetDir != nil && *req.TargetDir != "" {
		cfg.TargetDir = *req.TargetDir
	}
	if req.Overwrite != nil {
		cfg.Overwrite = *req.Overwrite
	}

	runner, err := downloader.New(a.client, downloader.Config{
		TargetDir:   cfg.TargetDir,
		Overwrite:   cfg.Overwrite,
		DryRun:      cfg.DryRun,
		Concurrency: cfg.Concurrency,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Audit:       a.audit,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Message: "Internal server error"})
		return
	}

	manifest, err := runner.Run(r.Context(), recordings)
	if err == nil {
		err = manifest.Err()
	}
	if err != nil {
		a.logger.Error("triggered download failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, apiError{
			Message: "Failed to download one or more files",
			Code:    "download_failed",
		})
		return
	}

	var notes []string
	if cfg.DryRun {
		notes = append(notes, "Dry run enabled; no files written.")
	}
	if filesExpected == 0 {
		notes = append(notes, "Recording does not include downloadable files.")
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		OK:            true,
		FilesExpected: filesExpected,
		Note:          strings.Join(notes, " "),
	})
}

// parseListFilters converts optional from/to date strings into a filter
// window. A bare "to" date extends to the end of that day so it stays
// inclusive.
func parseListFilters(from, to string) (zoom.Filters, error) {
	var filters zoom.Filters
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filters, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		filters.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filters, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		filters.From = t
	}
	return filters, nil
}

// writeZoomError translates the client error taxonomy onto HTTP statuses.
func (a *API) writeZoomError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *zoom.ValidationError
	switch {
	case zoom.IsAuth(err):
		writeJSON(w, http.StatusUnauthorized, apiError{Message: "Zoom authentication failed", Code: "zoom_auth"})
	case zoom.IsRateLimit(err):
		writeJSON(w, http.StatusTooManyRequests, apiError{Message: "Zoom rate limit exceeded; retry later", Code: "zoom_rate_limit"})
	case zoom.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, apiError{Message: "Recording not found", Code: "zoom_not_found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, apiError{Message: verr.Error()})
	default:
		a.logger.Error("zoom request failed", "path", r.URL.Path, logging.Err(err))
		writeJSON(w, http.StatusBadGateway, apiError{Message: "Zoom API request failed", Code: "zoom_api"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps next with request counting under a fixed path label.
func (a *API) instrument(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		a.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}
