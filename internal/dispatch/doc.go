// Package dispatch runs worklets on a device: it resolves the device through
// the tracker, prepares every argument, computes the output domain, tiles it
// and hands the tiles to the device adapter. Failures are reported through a
// small error taxonomy that callers inspect with errors.As and Classify.
package dispatch
