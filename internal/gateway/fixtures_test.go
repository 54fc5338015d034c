package gateway

import (
	"encoding/json"
	"strings"
	"testing"
)

// mustRow builds a device row fixture from JSON so numeric values carry the
// same types they have after decoding live gateway traffic.
func mustRow(t *testing.T, raw string) map[string]any {
	t.Helper()

	var row map[string]any
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("bad row fixture: %v", err)
	}
	return row
}

// statusWithFlags builds a thermostat status string with the humidity
// capability flag at hex positions 32-33 and the battery digit at position
// 99.
func statusWithFlags(humidityFlag string, batteryDigit string) string {
	return strings.Repeat("0", 32) + humidityFlag + strings.Repeat("0", 65) + batteryDigit
}
