package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/engine"
)

// deviceResponse is one device as returned by the device routes.
type deviceResponse struct {
	device.Device
	ViewModel device.ViewModel `json:"view_model"`
	State     device.State     `json:"state"`
}

// commandRequest is the body of POST /devices/{id}/commands.
type commandRequest struct {
	Command string `json:"command"`
	Value   any    `json:"value,omitempty"`
}

func (s *Server) toResponse(e device.Entry) deviceResponse {
	return deviceResponse{
		Device:    e.Device,
		ViewModel: e.ViewModel,
		State:     device.Project(e.ViewModel, s.now(), s.daylight),
	}
}

// handleListDevices returns every registered device, optionally filtered
// by ?kind=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	kind := device.Kind(r.URL.Query().Get("kind"))
	if kind != "" && !device.ValidKind(kind) {
		writeBadRequest(w, "unknown kind: "+string(kind))
		return
	}

	entries := s.registry.Entries()
	out := make([]deviceResponse, 0, len(entries))
	for _, e := range entries {
		if kind != "" && e.Device.Kind != kind {
			continue
		}
		out = append(out, s.toResponse(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": out,
		"count":   len(out),
	})
}

// handleGetDevice returns one device with its view-model and state.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := deviceIDParam(r)

	dev, err := s.registry.Get(id)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}
	vm, err := s.registry.ViewModel(id)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, s.toResponse(device.Entry{Device: dev, ViewModel: vm}))
}

// handleDeviceCommand dispatches a command to one device.
//
// 202 on success (including debounced no-ops), 400 for an invalid command
// or value, 404 for an unknown device, 502 when the controller call fails.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := deviceIDParam(r)

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "command is required")
		return
	}

	res, err := s.dispatcher.Dispatch(r.Context(), engine.Intent{
		DeviceID: id,
		Command:  req.Command,
		Value:    req.Value,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, res)
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Warn("command failed",
			"device_id", id,
			"command", req.Command,
			"command_id", res.CommandID,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeError(w, http.StatusBadGateway, ErrCodeRemote, err.Error())
	}
}

// deviceIDParam returns the {id} path parameter, unescaping "heater%3A1".
func deviceIDParam(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}
