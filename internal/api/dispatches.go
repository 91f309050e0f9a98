package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/dispatch"
	"github.com/Viskores/viskores-sub000/internal/model"
	"github.com/Viskores/viskores-sub000/internal/store"
	"github.com/Viskores/viskores-sub000/internal/worklet/library"
)

const (
	defaultListLimit  = 20
	maxListLimit      = 100
	maxBodySize       = 1 << 20 // 1 MB
	defaultSampleSize = 1024
	previewSize       = 16
)

// runSampleRequest is the JSON body for POST /v1/dispatches.
type runSampleRequest struct {
	Sample string `json:"sample"`
	Size   int    `json:"size"`
	Device string `json:"device"`
}

// runSampleResponse describes a finished sample dispatch.
type runSampleResponse struct {
	ID           string `json:"id"`
	Sample       string `json:"sample"`
	Device       string `json:"device"`
	InputDomain  int    `json:"input_domain"`
	OutputDomain int    `json:"output_domain"`
	Tiles        int    `json:"tiles"`
	Fallbacks    int    `json:"fallbacks"`
	DurationUS   int64  `json:"duration_us"`
	ValueType    string `json:"value_type"`
	Preview      []any  `json:"preview"`
}

// dispatchErrorResponse reports a failed dispatch.
type dispatchErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

// listDispatchesResponse wraps the paginated list response.
type listDispatchesResponse struct {
	Dispatches []*model.Dispatch `json:"dispatches"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

func (s *Server) handleRunSample(w http.ResponseWriter, r *http.Request) {
	var req runSampleRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Sample == "" {
		s.writeError(w, http.StatusBadRequest, "sample is required")
		return
	}
	if req.Size == 0 {
		req.Size = defaultSampleSize
	}

	id := device.Any
	if req.Device != "" {
		var err error
		if id, err = device.ParseID(req.Device); err != nil {
			s.writeError(w, http.StatusBadRequest, "unknown device")
			return
		}
	}

	sample, err := library.NewSample(req.Sample, req.Size)
	if errors.Is(err, library.ErrUnknownSample) {
		s.writeError(w, http.StatusNotFound, "unknown sample")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.dispatcher.Invoke(r.Context(), sample.Worklet, dispatch.WithDevice(id))
	class := dispatch.Classify(err)
	ran := id
	if res != nil {
		ran = res.Device
	}
	recordSampleRequest(sample.Name, ran, class)
	if err != nil {
		s.writeJSON(w, statusForClass(class), dispatchErrorResponse{Error: err.Error(), Class: string(class)})
		return
	}

	values, err := sample.Output.Values()
	if err != nil {
		s.logger.Error("read sample output", "dispatch_id", res.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read output")
		return
	}

	w.Header().Set(dispatchIDHeader, res.ID)
	s.writeJSON(w, http.StatusCreated, runSampleResponse{
		ID:           res.ID,
		Sample:       sample.Name,
		Device:       res.Device.String(),
		InputDomain:  res.InputDomain,
		OutputDomain: res.OutputDomain,
		Tiles:        res.Tiles,
		Fallbacks:    res.Fallbacks,
		DurationUS:   res.Duration.Microseconds(),
		ValueType:    sample.Output.ValueType(),
		Preview:      values[:min(len(values), previewSize)],
	})
}

// statusForClass maps a dispatch error class to an HTTP status.
func statusForClass(c dispatch.ErrorClass) int {
	switch c {
	case dispatch.ClassSetup:
		return http.StatusBadRequest
	case dispatch.ClassUnavailable:
		return http.StatusServiceUnavailable
	case dispatch.ClassExecution:
		return http.StatusUnprocessableEntity
	case dispatch.ClassResource:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListSamples(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, library.SampleNames())
}

func (s *Server) handleGetDispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := model.ParseID(id); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid dispatch id")
		return
	}

	d, err := s.store.GetDispatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "dispatch not found")
		return
	}
	if err != nil {
		s.logger.Error("get dispatch", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get dispatch")
		return
	}

	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListDispatches(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	q := r.URL.Query()
	dispatches, total, err := s.store.ListDispatches(r.Context(), model.DispatchFilter{
		Worklet: q.Get("worklet"),
		Device:  q.Get("device"),
		Status:  q.Get("status"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.logger.Error("list dispatches", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list dispatches")
		return
	}

	if dispatches == nil {
		dispatches = []*model.Dispatch{}
	}

	s.writeJSON(w, http.StatusOK, listDispatchesResponse{
		Dispatches: dispatches,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
