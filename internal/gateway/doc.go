// Package gateway implements the local-mode client for the Salus iT600
// universal gateway.
//
// The gateway exposes a proprietary encrypted JSON-over-HTTP protocol on the
// LAN. This package owns the whole protocol surface:
//
//   - AES-CBC transport cipher with the gateway's fixed key derivation and IV
//   - request/response envelope (readall, deviceid detail reads, writes)
//   - per-category decoding of raw device rows into normalized records
//     (climate, cover, switch, sensor, binary sensor)
//   - command encoding back to the gateway (setpoints, positions, on/off)
//
// # Architecture
//
//	┌──────────────┐   encrypted HTTP    ┌──────────────┐   Zigbee-like RF
//	│  Gateway     │◄───────────────────►│  iT600 hub   │◄───────────────► devices
//	│  (this pkg)  │  POST /deviceid/…   │              │
//	└──────────────┘                     └──────────────┘
//
// # Polling model
//
// PollStatus fetches one bulk device listing, filters it per category by the
// raw protocol blocks each row carries, issues one detail request per
// non-empty category and decodes the result. Each category's map is rebuilt
// from scratch and swapped in atomically; a decode failure in one row or one
// category never aborts the rest of the cycle. Callers read snapshots via the
// Get* accessors between polls.
//
// # Thermostat dialects
//
// The hub bridges two incompatible thermostat families. Rows carrying an
// sIT600TH block are plain iT600 heat-only thermostats; rows carrying
// sTherS+sComm+sFanS are FC600 fan-coil controllers with heat/cool modes and
// fan control. Which family a device belongs to is sniffed from the row shape
// at decode time and carried on the record's model identifier, which command
// methods branch on when building write payloads.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Wire requests are
// serialized through a single mutex because the embedded hub cannot handle
// concurrent requests.
package gateway
