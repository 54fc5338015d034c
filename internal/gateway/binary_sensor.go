package gateway

import "context"

func (c *Client) refreshBinarySensorDevices(ctx context.Context, matched []map[string]any, notify bool) error {
	local := map[string]BinarySensorDevice{}
	refreshed := map[string]struct{}{}

	rows, err := c.readDetails(ctx, matched)
	if err != nil {
		return err
	}

	for _, row := range rows {
		device, lowBattery := decodeBinarySensorRow(row)
		if device == nil {
			continue
		}

		local[device.UniqueID] = *device
		refreshed[device.UniqueID] = struct{}{}

		if lowBattery != nil {
			local[lowBattery.UniqueID] = *lowBattery
		}
	}

	c.stateMu.Lock()
	c.binarySensors = local
	c.stateMu.Unlock()

	c.logDebug("refreshed binary sensor devices", "count", len(local))

	if notify {
		c.notifyListeners(&c.binarySensorListeners, refreshed)
	}

	return nil
}

// decodeBinarySensorRow decodes one binary sensor row plus its low battery
// child when the row reports one. Relay driven models read their state from
// the sIT600I relay status, everything else from the IAS zone alarm bit.
// Rows without a state and the SB600 button decode to nothing.
func decodeBinarySensorRow(row map[string]any) (*BinarySensorDevice, *BinarySensorDevice) {
	id, ok := uniqueID(row)
	if !ok {
		return nil, nil
	}

	model := modelIdentifier(row)

	var isOn int
	if relayBinarySensorModels[model] {
		isOn, ok = rawInt(nested(row, blockIT600I), "RelayStatus")
	} else {
		isOn, ok = rawInt(nested(row, blockIASZone), "ErrorIASZSAlarmed1")
	}
	if !ok {
		return nil, nil
	}

	// SB600 is a push button, not a sensor.
	if model == "SB600" {
		return nil, nil
	}

	data, _ := rowData(row)

	device := BinarySensorDevice{
		Available:    available(row),
		Name:         deviceName(row, "Unknown"),
		UniqueID:     id,
		Manufacturer: manufacturer(row),
		Model:        model,
		SWVersion:    firmwareVersion(row),
		IsOn:         isOn == 1,
		DeviceClass:  binarySensorDeviceClass[model],
		Data:         data,
	}

	// The IAS zone low battery flag wins over the power cluster's when both
	// are present.
	lowBattery, ok := rawInt(nested(row, blockIASZone), "ErrorIASZSLowBattery")
	if !ok {
		lowBattery, ok = rawInt(nested(row, blockPower), "ErrorPowerSLowBattery")
	}
	if !ok {
		return &device, nil
	}

	return &device, &BinarySensorDevice{
		Available:      device.Available,
		Name:           device.Name + " Low battery",
		UniqueID:       id + "_low_battery",
		ParentUniqueID: id,
		Manufacturer:   device.Manufacturer,
		Model:          model,
		SWVersion:      device.SWVersion,
		IsOn:           lowBattery == 1,
		DeviceClass:    "battery",
		Data:           data,
	}
}
