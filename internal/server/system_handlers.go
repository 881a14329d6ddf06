package server

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pricewise/pricewise/internal/database"
	"github.com/pricewise/pricewise/internal/scheduler"
)

// Job is re-exported so callers wiring manual triggers do not need the
// scheduler package.
type Job = scheduler.Job

// SystemHandlers serves system monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	jobs      map[string]Job
	startTime time.Time
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		jobs:      make(map[string]Job),
		startTime: time.Now(),
	}
}

// SetJobs registers jobs that may be triggered manually
func (h *SystemHandlers) SetJobs(jobs ...Job) {
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
}

// HandleSystemStatus returns process and database health
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memUsed := h.resourceUsage()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := make(map[string]string, len(h.databases))
	healthy := true
	for _, db := range h.databases {
		if err := db.QuickCheck(ctx); err != nil {
			dbStatus[db.Name()] = "error: " + err.Error()
			healthy = false
		} else {
			dbStatus[db.Name()] = "ok"
		}
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}

	h.writeJSON(w, map[string]interface{}{
		"status":         status,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"cpu_percent":    cpuAvg,
		"memory_percent": memUsed,
		"databases":      dbStatus,
	})
}

// HandleDatabaseStats returns per-database file sizes and overall data
// directory usage
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]map[string]interface{}, 0, len(h.databases))
	for _, db := range h.databases {
		entry := map[string]interface{}{
			"name": db.Name(),
			"path": db.Path(),
		}
		if info, err := os.Stat(db.Path()); err == nil {
			entry["size_bytes"] = info.Size()
		}
		stats = append(stats, entry)
	}

	h.writeJSON(w, map[string]interface{}{
		"databases":      stats,
		"data_dir":       h.dataDir,
		"data_dir_bytes": h.dataDirSize(),
	})
}

// dataDirSize sums file sizes under the data directory, including model
// artifacts, local backups and WAL files.
func (h *SystemHandlers) dataDirSize() int64 {
	var total int64
	err := filepath.WalkDir(h.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to walk data directory")
	}
	return total
}

// HandleTriggerJob runs a registered background job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown job: " + name})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, map[string]string{"status": "completed", "job": name})
}

func (h *SystemHandlers) resourceUsage() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
