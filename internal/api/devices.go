package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Viskores/viskores-sub000/internal/device"
)

// disableDeviceRequest is the optional JSON body for POST /v1/devices/{name}/disable.
type disableDeviceRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.List())
}

func (s *Server) handleDisableDevice(w http.ResponseWriter, r *http.Request) {
	id, err := device.ParseID(chi.URLParam(r, "name"))
	if err != nil || !id.Valid() {
		s.writeError(w, http.StatusNotFound, "unknown device")
		return
	}

	var req disableDeviceRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Reason == "" {
		req.Reason = "disabled through the API"
	}

	s.tracker.Disable(id, req.Reason)
	s.writeJSON(w, http.StatusOK, s.tracker.List())
}

func (s *Server) handleResetDevices(w http.ResponseWriter, _ *http.Request) {
	s.tracker.ResetToDefaults()
	s.writeJSON(w, http.StatusOK, s.tracker.List())
}
