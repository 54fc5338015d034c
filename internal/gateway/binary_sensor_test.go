package gateway

import (
	"fmt"
	"testing"
)

func TestDecodeBinarySensorRow(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		wantClass string
	}{
		{"window sensor", "SW600", "window"},
		{"outdoor window sensor", "OS600", "window"},
		{"water leak sensor", "WLS600", "moisture"},
		{"smoke sensor", "SmokeSensor-EM", "smoke"},
		{"unknown model has no class", "XX123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := mustRow(t, fmt.Sprintf(`{
				"data": {"UniID": "bs1"},
				"DeviceL": {"ModelIdentifier_i": %q},
				"sIASZS": {"ErrorIASZSAlarmed1": 1}
			}`, tt.model))

			device, _ := decodeBinarySensorRow(row)
			if device == nil {
				t.Fatal("decodeBinarySensorRow() returned nil device")
			}

			if !device.IsOn {
				t.Error("IsOn = false, want true")
			}
			if device.DeviceClass != tt.wantClass {
				t.Errorf("DeviceClass = %q, want %q", device.DeviceClass, tt.wantClass)
			}
		})
	}
}

func TestDecodeBinarySensorRowRelayModels(t *testing.T) {
	tests := []struct {
		model     string
		wantClass string
	}{
		{"it600MINITRV", "heat"},
		{"it600Receiver", "running"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			row := mustRow(t, fmt.Sprintf(`{
				"data": {"UniID": "bs1"},
				"sBasicS": {"ModelIdentifier": %q},
				"DeviceL": {"ModelIdentifier_i": %q},
				"sIT600I": {"RelayStatus": 1},
				"sIASZS": {"ErrorIASZSAlarmed1": 0}
			}`, tt.model, tt.model))

			device, _ := decodeBinarySensorRow(row)
			if device == nil {
				t.Fatal("decodeBinarySensorRow() returned nil device")
			}

			// The relay status wins over the zone alarm bit for these models.
			if !device.IsOn {
				t.Error("IsOn = false, want true from RelayStatus")
			}
			if device.DeviceClass != tt.wantClass {
				t.Errorf("DeviceClass = %q, want %q", device.DeviceClass, tt.wantClass)
			}
		})
	}
}

func TestDecodeBinarySensorRowSkips(t *testing.T) {
	t.Run("button device", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "bs1"},
			"DeviceL": {"ModelIdentifier_i": "SB600"},
			"sIASZS": {"ErrorIASZSAlarmed1": 0}
		}`)

		if device, _ := decodeBinarySensorRow(row); device != nil {
			t.Errorf("decodeBinarySensorRow() = %+v, want nil", device)
		}
	})

	t.Run("no state", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "bs1"},
			"DeviceL": {"ModelIdentifier_i": "SW600"}
		}`)

		if device, _ := decodeBinarySensorRow(row); device != nil {
			t.Errorf("decodeBinarySensorRow() = %+v, want nil", device)
		}
	})
}

func TestDecodeBinarySensorRowLowBattery(t *testing.T) {
	t.Run("zone flag", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "bs1"},
			"sIASZS": {"ErrorIASZSAlarmed1": 0, "ErrorIASZSLowBattery": 1}
		}`)

		device, lowBattery := decodeBinarySensorRow(row)
		if device == nil || lowBattery == nil {
			t.Fatal("expected device and low battery child")
		}

		if lowBattery.UniqueID != "bs1_low_battery" {
			t.Errorf("UniqueID = %q, want bs1_low_battery", lowBattery.UniqueID)
		}
		if !lowBattery.IsOn {
			t.Error("IsOn = false, want true")
		}
		if lowBattery.DeviceClass != "battery" {
			t.Errorf("DeviceClass = %q, want battery", lowBattery.DeviceClass)
		}
		if lowBattery.ParentUniqueID != "bs1" {
			t.Errorf("ParentUniqueID = %q, want bs1", lowBattery.ParentUniqueID)
		}
	})

	t.Run("zone flag wins over power flag", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "bs1"},
			"sIASZS": {"ErrorIASZSAlarmed1": 0, "ErrorIASZSLowBattery": 0},
			"sPowerS": {"ErrorPowerSLowBattery": 1}
		}`)

		_, lowBattery := decodeBinarySensorRow(row)
		if lowBattery == nil {
			t.Fatal("expected low battery child")
		}
		if lowBattery.IsOn {
			t.Error("IsOn = true, want false from sIASZS flag")
		}
	})

	t.Run("power flag as fallback", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "bs1"},
			"sIASZS": {"ErrorIASZSAlarmed1": 0},
			"sPowerS": {"ErrorPowerSLowBattery": 1}
		}`)

		_, lowBattery := decodeBinarySensorRow(row)
		if lowBattery == nil {
			t.Fatal("expected low battery child")
		}
		if !lowBattery.IsOn {
			t.Error("IsOn = false, want true from sPowerS flag")
		}
	})

	t.Run("no flags", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "bs1"},
			"sIASZS": {"ErrorIASZSAlarmed1": 0}
		}`)

		if _, lowBattery := decodeBinarySensorRow(row); lowBattery != nil {
			t.Errorf("low battery = %+v, want nil", lowBattery)
		}
	})
}
