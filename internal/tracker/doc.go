// Package tracker implements the runtime device tracker: the registry of
// compiled-in backends, their probe results, and which of them are currently
// enabled. It resolves the device a dispatch should run on and carries the
// fallback preference order.
//
// A tracker is created once by the host process and passed explicitly to the
// components that need it. Tests build a fresh tracker each time.
package tracker
