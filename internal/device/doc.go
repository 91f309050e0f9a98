// Package device defines the execution backends the engine can target: the
// enumerated device identifiers, the Adapter interface every backend
// implements, per-device memory accounting, and fault capture for scheduled
// bodies that crash.
//
// Concrete backends live in subpackages (serial, threadpool, vector,
// kernelgrid). The parallel algorithm vocabulary built on top of Adapter lives
// in the algorithm package.
package device
