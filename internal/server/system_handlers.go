package server

import (
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/aristath/turtle/internal/database"
	"github.com/aristath/turtle/internal/reliability"
	"github.com/aristath/turtle/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// JobRunner runs a job outside its schedule
type JobRunner interface {
	RunNow(job scheduler.Job) error
}

// BrokerInfo describes the configured broker connection
type BrokerInfo struct {
	Configured bool   `json:"configured"`
	BaseURL    string `json:"base_url"`
}

// DBInfo describes the portfolio database file
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status         string     `json:"status"`
	StartedAt      string     `json:"started_at"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	Broker         BrokerInfo `json:"broker"`
	Database       DBInfo     `json:"database"`
	BackupsEnabled bool       `json:"backups_enabled"`
	Jobs           []string   `json:"jobs"`
}

// SystemHandlers serves monitoring and maintenance endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	db          *database.DB
	broker      BrokerInfo
	backups     *reliability.BackupService // nil when disabled
	jobs        map[string]scheduler.Job
	runner      JobRunner
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	db *database.DB,
	broker BrokerInfo,
	backups *reliability.BackupService,
	jobs map[string]scheduler.Job,
	runner JobRunner,
	log zerolog.Logger,
) *SystemHandlers {
	if jobs == nil {
		jobs = map[string]scheduler.Job{}
	}
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		db:          db,
		broker:      broker,
		backups:     backups,
		jobs:        jobs,
		runner:      runner,
	}
}

// HandleSystemStatus returns a one-shot overview of the process
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	dbInfo := h.databaseInfo(r)

	status := "healthy"
	if !dbInfo.Healthy {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:         status,
		StartedAt:      h.startupTime.Format(time.RFC3339),
		UptimeSeconds:  int64(time.Since(h.startupTime).Seconds()),
		Broker:         h.broker,
		Database:       dbInfo,
		BackupsEnabled: h.backups != nil,
		Jobs:           h.jobNames(),
	}, h.log)
}

// HandleDatabaseStats reports the database file size and integrity
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.databaseInfo(r), h.log)
}

// HandleJobsStatus lists the jobs that can be triggered
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_jobs": len(h.jobs),
		"jobs":       h.jobNames(),
	}, h.log)
}

// HandleRunJob runs the named job synchronously
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok || h.runner == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Unknown job: " + name}, h.log)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	start := time.Now()
	if err := h.runner.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}, h.log)
}

// HandleListBackups lists off-site backups, newest first
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "Backups are not configured"}, h.log)
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "message": err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	}, h.log)
}

func (h *SystemHandlers) databaseInfo(r *http.Request) DBInfo {
	if h.db == nil {
		return DBInfo{Error: "database not configured"}
	}

	info := DBInfo{Name: h.db.Name() + ".db", Path: h.db.Path(), Healthy: true}
	if stat, err := os.Stat(h.db.Path()); err == nil {
		info.SizeMB = float64(stat.Size()) / 1024 / 1024
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		info.Healthy = false
		info.Error = err.Error()
	}
	return info
}

func (h *SystemHandlers) jobNames() []string {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
