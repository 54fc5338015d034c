// Package bridge connects the gateway client to the MQTT message bus.
//
// Each poll cycle the bridge snapshots every decoded device, publishes
// changed states to retained topics (it600/state/{category}/{device_id}),
// records snapshots in the history store, and forwards readings to the
// time-series database. Publishes are deduplicated against the last
// payload per topic, so an unchanged device produces no traffic.
//
// Commands arrive on it600/command/{device_id} as JSON envelopes with an
// action field. Every command produces an acknowledgement on
// it600/ack/{device_id} carrying the request id (client-supplied or
// generated), so callers can correlate results. Accepted commands
// trigger an immediate refresh so the new state is published without
// waiting for the next poll.
//
// The history store and time-series client are optional; a nil value
// disables that sink.
package bridge
