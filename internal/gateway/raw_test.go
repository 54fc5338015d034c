package gateway

import "testing"

func TestDeviceName(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{
			"wrapped name",
			`{"sZDO": {"DeviceName": "{\"deviceName\":\"Kitchen\"}"}}`,
			"Kitchen",
		},
		{
			"missing block",
			`{}`,
			"fallback",
		},
		{
			"malformed wrapper",
			`{"sZDO": {"DeviceName": "not json"}}`,
			"fallback",
		},
		{
			"empty name in wrapper",
			`{"sZDO": {"DeviceName": "{\"deviceName\":\"\"}"}}`,
			"fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceName(mustRow(t, tt.row), "fallback"); got != tt.want {
				t.Errorf("deviceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManufacturerDefault(t *testing.T) {
	if got := manufacturer(mustRow(t, `{}`)); got != "SALUS" {
		t.Errorf("manufacturer() = %q, want SALUS", got)
	}
	if got := manufacturer(mustRow(t, `{"sBasicS": {"ManufactureName": "OEM"}}`)); got != "OEM" {
		t.Errorf("manufacturer() = %q, want OEM", got)
	}
}

func TestAvailableDefaultsOnline(t *testing.T) {
	if !available(mustRow(t, `{}`)) {
		t.Error("available() = false for row without online flag, want true")
	}
	if available(mustRow(t, `{"sZDOInfo": {"OnlineStatus_i": 0}}`)) {
		t.Error("available() = true for offline row, want false")
	}
}
