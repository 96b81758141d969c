package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/WebAFilippov/af-win-audio/internal/monitor"
	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// defaultHistoryLimit is used when a history query omits the limit parameter.
const defaultHistoryLimit = 50

// volumeRequest is the body for absolute volume changes.
type volumeRequest struct {
	Level int `json:"level"`
}

// stepRequest is the body for relative volume changes. A zero step means
// "use the executable's configured default".
type stepRequest struct {
	Step int `json:"step"`
}

// delayRequest is the body for poll-delay changes.
type delayRequest struct {
	DelayMs int `json:"delay_ms"`
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
// Returns false if the caller should stop processing.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeCommandResult maps a monitor command error to an HTTP response.
// Validation failures are the caller's fault; a missing command channel means
// the child process is not running.
func writeCommandResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	case errors.Is(err, protocol.ErrValidation):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, monitor.ErrChannelUnavailable):
		writeConflict(w, "audio process is not running")
	default:
		writeInternalError(w, err.Error())
	}
}

// handleStatus returns the monitor's current state and process statistics.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Stats())
}

// handleProcessStart launches the audio telemetry process.
func (s *Server) handleProcessStart(w http.ResponseWriter, r *http.Request) {
	err := s.monitor.Start(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.monitor.Stats())
	case errors.Is(err, monitor.ErrAlreadyRunning):
		writeConflict(w, "audio process is already running")
	case errors.Is(err, monitor.ErrSpawn):
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

// handleProcessStop requests a graceful stop of the audio telemetry process.
func (s *Server) handleProcessStop(w http.ResponseWriter, _ *http.Request) {
	err := s.monitor.Stop()
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	case errors.Is(err, monitor.ErrNotRunning), errors.Is(err, monitor.ErrTerminated):
		writeConflict(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

// handleGetDevice returns the most recent snapshot of the default device.
func (s *Server) handleGetDevice(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := s.monitor.LastSnapshot()
	if !ok {
		writeNotFound(w, "no device snapshot received yet")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleDeviceHistory returns recent change-history entries for a device.
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "change history is not enabled")
		return
	}

	deviceID := chi.URLParam(r, "id")
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.Recent(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("history query failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"count":     len(entries),
		"entries":   entries,
	})
}

// handleSetVolume sets the absolute volume of the default device.
func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeCommandResult(w, s.monitor.SetVolume(req.Level))
}

// handleVolumeUp raises the default device's volume. An optional step in the
// body overrides the executable's default step.
func (s *Server) handleVolumeUp(w http.ResponseWriter, r *http.Request) {
	req := stepRequest{}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Step > 0 {
		writeCommandResult(w, s.monitor.UpVolumeBy(req.Step))
		return
	}
	writeCommandResult(w, s.monitor.UpVolume())
}

// handleVolumeDown lowers the default device's volume.
func (s *Server) handleVolumeDown(w http.ResponseWriter, r *http.Request) {
	req := stepRequest{}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Step > 0 {
		writeCommandResult(w, s.monitor.DownVolumeBy(req.Step))
		return
	}
	writeCommandResult(w, s.monitor.DownVolume())
}

// handleSetDeviceVolume sets the absolute volume of a specific device.
func (s *Server) handleSetDeviceVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeCommandResult(w, s.monitor.SetDeviceVolume(chi.URLParam(r, "id"), req.Level))
}

// handleMute mutes the default device.
func (s *Server) handleMute(w http.ResponseWriter, _ *http.Request) {
	writeCommandResult(w, s.monitor.Mute())
}

// handleUnmute unmutes the default device.
func (s *Server) handleUnmute(w http.ResponseWriter, _ *http.Request) {
	writeCommandResult(w, s.monitor.Unmute())
}

// handleToggleMute toggles the default device's mute state.
func (s *Server) handleToggleMute(w http.ResponseWriter, _ *http.Request) {
	writeCommandResult(w, s.monitor.ToggleMute())
}

// handleMuteDevice mutes a specific device.
func (s *Server) handleMuteDevice(w http.ResponseWriter, r *http.Request) {
	writeCommandResult(w, s.monitor.MuteDevice(chi.URLParam(r, "id")))
}

// handleUnmuteDevice unmutes a specific device.
func (s *Server) handleUnmuteDevice(w http.ResponseWriter, r *http.Request) {
	writeCommandResult(w, s.monitor.UnmuteDevice(chi.URLParam(r, "id")))
}

// handleToggleMuteDevice toggles a specific device's mute state.
func (s *Server) handleToggleMuteDevice(w http.ResponseWriter, r *http.Request) {
	writeCommandResult(w, s.monitor.ToggleMuteDevice(chi.URLParam(r, "id")))
}

// handleSetDelay changes the executable's polling delay at runtime.
func (s *Server) handleSetDelay(w http.ResponseWriter, r *http.Request) {
	var req delayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeCommandResult(w, s.monitor.SetPollDelay(req.DelayMs))
}

// handleSetStep changes the executable's default volume step at runtime.
func (s *Server) handleSetStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeCommandResult(w, s.monitor.SetVolumeStep(req.Step))
}
