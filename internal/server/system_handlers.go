package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/nasdaq-universe/internal/database"
	"github.com/aristath/nasdaq-universe/internal/scheduler"
)

// SystemHandlers serves process status and the discovery trigger
type SystemHandlers struct {
	log        zerolog.Logger
	db         *database.DB
	discovery  DiscoveryTrigger
	cronSecret string
	startedAt  time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, db *database.DB, discovery DiscoveryTrigger, cronSecret string) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("component", "system_handlers").Logger(),
		db:         db,
		discovery:  discovery,
		cronSecret: cronSecret,
		startedAt:  time.Now(),
	}
}

// DiscoveryStatus describes the discovery job
type DiscoveryStatus struct {
	Running   bool       `json:"running"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	Goroutines    int              `json:"goroutines"`
	Discovery     *DiscoveryStatus `json:"discovery,omitempty"`
	Database      *database.Stats  `json:"database,omitempty"`
}

// HandleSystemStatus reports uptime, host load and discovery state
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
	}

	if h.discovery != nil {
		status := &DiscoveryStatus{Running: h.discovery.Running()}
		if last, err := h.discovery.LastRun(); !last.IsZero() {
			status.LastRun = &last
			if err != nil {
				status.LastError = err.Error()
			}
		}
		response.Discovery = status
	}

	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
		} else {
			response.Database = stats
		}
	}

	h.writeJSON(w, response)
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// HandleTriggerDiscover starts a discovery run in the background
// POST /api/discover
func (h *SystemHandlers) HandleTriggerDiscover(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.writeJSONStatus(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if h.discovery == nil {
		h.log.Warn().Msg("Discovery job not registered")
		h.writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"error": "discovery job not registered"})
		return
	}

	id, err := h.discovery.Trigger()
	if errors.Is(err, scheduler.ErrRunInProgress) {
		h.writeJSONStatus(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to trigger discovery")
		h.writeJSONStatus(w, http.StatusInternalServerError, map[string]string{"error": "failed to trigger discovery"})
		return
	}

	h.log.Info().Str("run_id", id).Msg("Manual discovery triggered")
	h.writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"run_id": id,
	})
}

// authorized checks the bearer token when a cron secret is configured
func (h *SystemHandlers) authorized(r *http.Request) bool {
	if h.cronSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
