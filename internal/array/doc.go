// Package array provides Handle, the reference-counted, validity-tracked
// handle over a storage.Storage.
//
// A handle has one control buffer (its storage) and at most one execution
// buffer per device. A validity map records which of these hold the current
// contents. At least one side is valid at all times, and writing through any
// side invalidates all others. Transfers happen only inside the Prepare*
// calls and SyncControlArray, and every transfer is a real copy between
// control memory and the device's own buffer.
//
// Handles over implicit or derived storage never hold execution buffers:
// their device portals compute elements from the storage after the source
// handles have been synchronized to control memory. They reject output and
// in-place preparation.
package array
