package api

import (
	"encoding/json"
	"net/http"
)

// healthResponse reports whether any device can take a dispatch.
type healthResponse struct {
	Status    string   `json:"status"`
	Devices   []string `json:"devices"`
	Preferred string   `json:"preferred,omitempty"`
}

// handleHealthz answers 503 when every device is disabled or unavailable,
// since no dispatch could run.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	candidates := s.tracker.Candidates()

	resp := healthResponse{Status: "ok", Devices: make([]string, 0, len(candidates))}
	for _, a := range candidates {
		resp.Devices = append(resp.Devices, a.ID().String())
	}
	status := http.StatusOK
	if len(candidates) == 0 {
		resp.Status = "no_device"
		status = http.StatusServiceUnavailable
	} else {
		resp.Preferred = resp.Devices[0]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode healthz response", "error", err)
	}
}
