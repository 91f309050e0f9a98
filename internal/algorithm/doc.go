// Package algorithm implements the parallel algorithm vocabulary on top of
// device.Adapter. Each function prepares its handles on the given device,
// splits the work into tiles of the adapter's grain, and runs the tiles with
// Schedule, so every backend produces the same observable result.
//
// Scans and reductions are block scans: per-tile totals, a sequential pass
// over the tile totals, then a per-tile fold from the carried value. Integer
// results are identical on every backend. Floating-point results depend on the
// tile size and may differ between backends in rounding, while an exclusive
// and an inclusive scan on the same backend always satisfy
// exclusive[i] + in[i] == inclusive[i].
package algorithm
