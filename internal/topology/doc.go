// Package topology discovers and tracks the expansion modules attached
// to an IronPin unit.
//
// Discovery runs once at boot, strictly before the pin supervisor
// starts: it probes the module bus for each module type and records
// what answers. The resulting table is immutable for the life of the
// process; a module plugged in later is picked up on the next restart.
// Handles addressing modules that were not detected at boot are
// rejected by the engine's mode setters.
//
// Liveness is tracked separately from presence: bus traffic calls
// MarkSeen, and health reporting reads the last-seen timestamps without
// affecting the boot-time table.
package topology
