package gateway

import "context"

func (c *Client) refreshSensorDevices(ctx context.Context, matched []map[string]any, notify bool) error {
	local := map[string]SensorDevice{}
	refreshed := map[string]struct{}{}

	rows, err := c.readDetails(ctx, matched)
	if err != nil {
		return err
	}

	for _, row := range rows {
		for _, device := range decodeSensorRow(row) {
			local[device.UniqueID] = device
			refreshed[device.UniqueID] = struct{}{}
		}
	}

	c.stateMu.Lock()
	c.sensorDevices = local
	c.stateMu.Unlock()

	c.logDebug("refreshed sensor devices", "count", len(local))

	if notify {
		c.notifyListeners(&c.sensorListeners, refreshed)
	}

	return nil
}

// decodeSensorRow decodes one multi-sensor row into its readings: the
// temperature first, then humidity and battery children when present. Rows
// without a temperature reading decode to nothing.
func decodeSensorRow(row map[string]any) []SensorDevice {
	id, ok := uniqueID(row)
	if !ok {
		return nil
	}

	temperature, ok := rawNumber(nested(row, blockTemp), "MeasuredValue_x100")
	if !ok {
		return nil
	}

	data, _ := rowData(row)
	model := modelIdentifier(row)

	primary := SensorDevice{
		Available:    available(row),
		Name:         deviceName(row, "Unknown"),
		UniqueID:     id + "_temp",
		Manufacturer: manufacturer(row),
		Model:        model,
		SWVersion:    firmwareVersion(row),
		State:        temperature / 100,
		Unit:         "°C",
		DeviceClass:  "temperature",
		Data:         data,
	}
	devices := []SensorDevice{primary}

	// Standalone multi-sensors report humidity through the standard Zigbee
	// relative humidity cluster. Thermostats report theirs elsewhere.
	if humidity, ok := rawNumber(nested(row, blockHumidity), "MeasuredValue_x100"); ok {
		devices = append(devices, SensorDevice{
			Available:      primary.Available,
			Name:           primary.Name + " Humidity",
			UniqueID:       id + "_humidity",
			ParentUniqueID: id,
			Manufacturer:   primary.Manufacturer,
			Model:          model,
			SWVersion:      primary.SWVersion,
			State:          humidity / 100,
			Unit:           "%",
			DeviceClass:    "humidity",
			Data:           data,
		})
	}

	if voltageRaw, ok := rawNumber(nested(row, blockPower), "BatteryVoltage_x10"); ok {
		pct := batteryPercentForVoltage(model, voltageRaw/10)
		devices = append(devices, SensorDevice{
			Available:      primary.Available,
			Name:           primary.Name + " Battery",
			UniqueID:       id + "_battery",
			ParentUniqueID: id,
			Manufacturer:   primary.Manufacturer,
			Model:          model,
			SWVersion:      primary.SWVersion,
			State:          float64(pct),
			Unit:           "%",
			DeviceClass:    "battery",
			EntityCategory: "diagnostic",
			Data:           data,
		})
	}

	return devices
}
