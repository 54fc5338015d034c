// Package history stores device state snapshots in SQLite.
//
// Every poll cycle and every accepted command produces a snapshot per
// changed device, giving a local audit trail that survives restarts and
// works when the time-series database is unavailable.
//
// Entries are stored as JSON in the state_history table (see the
// database package migration registry for the schema). Retention is
// enforced by periodic calls to PruneHistory from the daemon.
package history
