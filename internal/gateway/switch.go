package gateway

import (
	"context"
	"fmt"
)

func (c *Client) refreshSwitchDevices(ctx context.Context, matched []map[string]any, notify bool) error {
	local := map[string]SwitchDevice{}
	energyLocal := map[string]SensorDevice{}
	refreshed := map[string]struct{}{}

	rows, err := c.readDetails(ctx, matched)
	if err != nil {
		return err
	}

	for _, row := range rows {
		device, meters, err := decodeSwitchRow(row)
		if err != nil {
			c.logError("failed to decode switch device", "error", err)
			continue
		}
		if device == nil {
			continue
		}

		local[device.UniqueID] = *device
		refreshed[device.UniqueID] = struct{}{}
		for _, meter := range meters {
			energyLocal[meter.UniqueID] = meter
		}
	}

	c.stateMu.Lock()
	c.switchDevices = local
	c.energySensors = energyLocal
	c.stateMu.Unlock()

	c.logDebug("refreshed switch devices", "count", len(local))

	if notify {
		c.notifyListeners(&c.switchListeners, refreshed)
	}

	return nil
}

// decodeSwitchRow decodes one on/off actuator row plus the power and energy
// readings its metering block carries. Rows that also expose a level block
// belong to the cover category and return a nil device, as do rows without
// an on/off state.
func decodeSwitchRow(row map[string]any) (*SwitchDevice, []SensorDevice, error) {
	id, ok := uniqueID(row)
	if !ok {
		return nil, nil, nil
	}

	// Double switches share a UniID; the endpoint keeps them apart.
	data, _ := rowData(row)
	endpoint, ok := rawInt(data, "Endpoint")
	if !ok {
		return nil, nil, fmt.Errorf("switch %s: missing data.Endpoint", id)
	}
	id = fmt.Sprintf("%s_%d", id, endpoint)

	if nested(row, blockLevel) != nil {
		return nil, nil, nil
	}

	onOff, ok := rawInt(nested(row, blockOnOff), "OnOff")
	if !ok {
		return nil, nil, nil
	}

	model := modelIdentifier(row)

	class := "switch"
	if outletModels[model] {
		class = "outlet"
	}

	device := SwitchDevice{
		Available:    available(row),
		Name:         deviceName(row, id),
		UniqueID:     id,
		Manufacturer: manufacturer(row),
		Model:        model,
		SWVersion:    firmwareVersion(row),
		IsOn:         onOff == 1,
		DeviceClass:  class,
		Data:         data,
	}

	var meters []SensorDevice

	metering := nested(row, blockMetering)
	if power, ok := rawNumber(metering, "InstantaneousDemand"); ok {
		meters = append(meters, SensorDevice{
			Available:      device.Available,
			Name:           device.Name + " Power",
			UniqueID:       id + "_power",
			ParentUniqueID: id,
			Manufacturer:   device.Manufacturer,
			Model:          model,
			SWVersion:      device.SWVersion,
			State:          power,
			Unit:           "W",
			DeviceClass:    "power",
			Data:           data,
		})
	}
	if energy, ok := rawNumber(metering, "CurrentSummationDelivered"); ok {
		meters = append(meters, SensorDevice{
			Available:      device.Available,
			Name:           device.Name + " Energy",
			UniqueID:       id + "_energy",
			ParentUniqueID: id,
			Manufacturer:   device.Manufacturer,
			Model:          model,
			SWVersion:      device.SWVersion,
			State:          energy / 1000,
			Unit:           "kWh",
			DeviceClass:    "energy",
			Data:           data,
		})
	}

	return &device, meters, nil
}
