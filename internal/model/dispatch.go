package model

import "time"

// Dispatch status constants.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Dispatch is the journal record of one worklet invocation.
type Dispatch struct {
	ID           string    `json:"id"`
	Worklet      string    `json:"worklet"`
	Requested    string    `json:"requested_device"`
	Device       string    `json:"device,omitempty"`
	Status       string    `json:"status"`
	InputDomain  int       `json:"input_domain"`
	OutputDomain int       `json:"output_domain"`
	Tiles        int       `json:"tiles"`
	Fallbacks    int       `json:"fallbacks"`
	ErrorClass   string    `json:"error_class,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationUS   int64     `json:"duration_us"`
	CreatedAt    time.Time `json:"created_at"`
}

// DispatchFilter narrows a journal listing. Zero fields match everything.
type DispatchFilter struct {
	Worklet string
	Device  string
	Status  string
	Limit   int
	Offset  int
}

// DeviceStats aggregates the dispatches that ran on one device.
type DeviceStats struct {
	Device        string  `json:"device"`
	Total         int     `json:"total"`
	Failed        int     `json:"failed"`
	AvgDurationUS float64 `json:"avg_duration_us"`
}

// DispatchStats aggregates the whole journal.
type DispatchStats struct {
	Total         int            `json:"total"`
	Completed     int            `json:"completed"`
	Failed        int            `json:"failed"`
	Fallbacks     int            `json:"fallbacks"`
	ByErrorClass  map[string]int `json:"by_error_class"`
	ByDevice      []DeviceStats  `json:"by_device"`
	AvgDurationUS float64        `json:"avg_duration_us"`
}
