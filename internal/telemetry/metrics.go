// Package telemetry holds the engine's Prometheus metrics and OpenTelemetry
// tracing setup.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// DispatchesTotal counts finished dispatches by worklet, device and
	// outcome.
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_dispatches_total",
			Help: "Total number of worklet dispatches.",
		},
		[]string{"worklet", "device", "status"},
	)

	// DispatchDuration observes dispatch wall time, setup included.
	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viskores_dispatch_duration_seconds",
			Help:    "Dispatch duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"worklet", "device"},
	)

	// DispatchInvocations counts worklet invocations (output domain size).
	DispatchInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_dispatch_invocations_total",
			Help: "Total number of worklet invocations scheduled.",
		},
		[]string{"device"},
	)

	// TransfersTotal counts host/device copies made by array handles.
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_array_transfers_total",
			Help: "Total number of array transfers between control and execution memory.",
		},
		[]string{"direction", "device"},
	)

	// TransferBytes counts bytes moved by array transfers.
	TransferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_array_transfer_bytes_total",
			Help: "Total bytes copied between control and execution memory.",
		},
		[]string{"direction", "device"},
	)

	// DeviceEnabled is 1 for each enabled device and 0 otherwise.
	DeviceEnabled = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "viskores_device_enabled",
			Help: "Whether a device is currently enabled (1) or not (0).",
		},
		[]string{"device"},
	)

	// DeviceDisabledTotal counts runtime disables by device.
	DeviceDisabledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_device_disabled_total",
			Help: "Total number of times a device was disabled at runtime.",
		},
		[]string{"device"},
	)

	// DeviceFallbacksTotal counts dispatches that moved off their first
	// choice device.
	DeviceFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_device_fallbacks_total",
			Help: "Total number of dispatch fallbacks from one device to the next.",
		},
		[]string{"from", "to"},
	)
)

func init() {
	prometheus.MustRegister(DispatchesTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(DispatchInvocations)
	prometheus.MustRegister(TransfersTotal)
	prometheus.MustRegister(TransferBytes)
	prometheus.MustRegister(DeviceEnabled)
	prometheus.MustRegister(DeviceDisabledTotal)
	prometheus.MustRegister(DeviceFallbacksTotal)
}
