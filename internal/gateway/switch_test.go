package gateway

import "testing"

func TestDecodeSwitchRow(t *testing.T) {
	row := mustRow(t, `{
		"data": {"UniID": "sw1", "Endpoint": 9},
		"sZDOInfo": {"OnlineStatus_i": 1},
		"sZDO": {"DeviceName": "{\"deviceName\":\"Kettle Plug\"}"},
		"DeviceL": {"ModelIdentifier_i": "SP600"},
		"sOnOffS": {"OnOff": 1}
	}`)

	device, meters, err := decodeSwitchRow(row)
	if err != nil {
		t.Fatalf("decodeSwitchRow() error = %v", err)
	}
	if device == nil {
		t.Fatal("decodeSwitchRow() returned nil device")
	}

	if device.UniqueID != "sw1_9" {
		t.Errorf("UniqueID = %q, want sw1_9", device.UniqueID)
	}
	if !device.IsOn {
		t.Error("IsOn = false, want true")
	}
	if device.DeviceClass != "outlet" {
		t.Errorf("DeviceClass = %q, want outlet", device.DeviceClass)
	}
	if len(meters) != 0 {
		t.Errorf("meters = %v, want none", meters)
	}
}

func TestDecodeSwitchRowGenericClass(t *testing.T) {
	row := mustRow(t, `{
		"data": {"UniID": "sw1", "Endpoint": 1},
		"DeviceL": {"ModelIdentifier_i": "SR600"},
		"sOnOffS": {"OnOff": 0}
	}`)

	device, _, err := decodeSwitchRow(row)
	if err != nil {
		t.Fatalf("decodeSwitchRow() error = %v", err)
	}
	if device.DeviceClass != "switch" {
		t.Errorf("DeviceClass = %q, want switch", device.DeviceClass)
	}
	if device.IsOn {
		t.Error("IsOn = true, want false")
	}
}

func TestDecodeSwitchRowMetering(t *testing.T) {
	row := mustRow(t, `{
		"data": {"UniID": "sw1", "Endpoint": 1},
		"DeviceL": {"ModelIdentifier_i": "SPE600"},
		"sOnOffS": {"OnOff": 1},
		"sMeteringS": {
			"InstantaneousDemand": 1500,
			"CurrentSummationDelivered": 2345
		}
	}`)

	device, meters, err := decodeSwitchRow(row)
	if err != nil {
		t.Fatalf("decodeSwitchRow() error = %v", err)
	}

	if len(meters) != 2 {
		t.Fatalf("meters = %d, want 2", len(meters))
	}

	power := meters[0]
	if power.UniqueID != "sw1_1_power" || power.State != 1500 || power.Unit != "W" {
		t.Errorf("power sensor = %q %v %q", power.UniqueID, power.State, power.Unit)
	}
	if power.ParentUniqueID != device.UniqueID {
		t.Errorf("power parent = %q, want %q", power.ParentUniqueID, device.UniqueID)
	}

	energy := meters[1]
	if energy.UniqueID != "sw1_1_energy" || energy.State != 2.345 || energy.Unit != "kWh" {
		t.Errorf("energy sensor = %q %v %q", energy.UniqueID, energy.State, energy.Unit)
	}
	if energy.DeviceClass != "energy" {
		t.Errorf("energy DeviceClass = %q", energy.DeviceClass)
	}
}

func TestDecodeSwitchRowSkips(t *testing.T) {
	t.Run("combo cover endpoint", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "sw1", "Endpoint": 1},
			"sOnOffS": {"OnOff": 1},
			"sLevelS": {"CurrentLevel": 50}
		}`)

		device, _, err := decodeSwitchRow(row)
		if err != nil || device != nil {
			t.Errorf("decodeSwitchRow() = %v, %v, want nil, nil", device, err)
		}
	})

	t.Run("missing on/off state", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "sw1", "Endpoint": 1}
		}`)

		device, _, err := decodeSwitchRow(row)
		if err != nil || device != nil {
			t.Errorf("decodeSwitchRow() = %v, %v, want nil, nil", device, err)
		}
	})

	t.Run("missing endpoint errors", func(t *testing.T) {
		row := mustRow(t, `{
			"data": {"UniID": "sw1"},
			"sOnOffS": {"OnOff": 1}
		}`)

		if _, _, err := decodeSwitchRow(row); err == nil {
			t.Error("decodeSwitchRow() error = nil, want missing endpoint error")
		}
	})
}
