package gateway

import "encoding/json"

// Helpers for walking raw device rows as decoded by encoding/json, where
// every object is a map[string]any and every number a float64. All helpers
// tolerate nil maps so callers can chain lookups without guarding each step.

func nested(row map[string]any, key string) map[string]any {
	m, _ := row[key].(map[string]any)
	return m
}

func rawString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func rawNumber(m map[string]any, key string) (float64, bool) {
	f, ok := m[key].(float64)
	return f, ok
}

func rawInt(m map[string]any, key string) (int, bool) {
	f, ok := m[key].(float64)
	return int(f), ok
}

func numberOrDefault(m map[string]any, key string, def float64) float64 {
	if f, ok := rawNumber(m, key); ok {
		return f
	}
	return def
}

func intOrDefault(m map[string]any, key string, def int) int {
	if v, ok := rawInt(m, key); ok {
		return v
	}
	return def
}

// rowData extracts the addressing block that every detail request and write
// echoes back to the gateway.
func rowData(row map[string]any) (map[string]any, bool) {
	d, ok := row["data"].(map[string]any)
	return d, ok
}

// uniqueID returns the row's UniID from its addressing block.
func uniqueID(row map[string]any) (string, bool) {
	d, ok := rowData(row)
	if !ok {
		return "", false
	}
	return rawString(d, "UniID")
}

// available reads the online flag. Devices that do not report one are
// treated as online.
func available(row map[string]any) bool {
	if v, ok := rawInt(nested(row, blockZDOInfo), "OnlineStatus_i"); ok {
		return v == 1
	}
	return true
}

// deviceName extracts the user assigned name. The gateway stores it as a
// JSON document inside a JSON string; anything malformed falls back to the
// supplied default.
func deviceName(row map[string]any, fallback string) string {
	raw, ok := rawString(nested(row, blockZDO), "DeviceName")
	if !ok {
		return fallback
	}

	var wrapper struct {
		DeviceName string `json:"deviceName"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err != nil || wrapper.DeviceName == "" {
		return fallback
	}

	return wrapper.DeviceName
}

func manufacturer(row map[string]any) string {
	if m, ok := rawString(nested(row, blockBasic), "ManufactureName"); ok {
		return m
	}
	return "SALUS"
}

func modelIdentifier(row map[string]any) string {
	m, _ := rawString(nested(row, blockDeviceList), "ModelIdentifier_i")
	return m
}

func firmwareVersion(row map[string]any) string {
	v, _ := rawString(nested(row, blockZDO), "FirmwareVersion")
	return v
}
