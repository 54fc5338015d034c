package gateway

import (
	"context"
	"fmt"
)

// Commands look up the cached device record for its addressing block and its
// dialect. A command for an unknown device id is logged and dropped rather
// than returned as an error, matching the behaviour callers expect from the
// gateway's own app: stale ids appear routinely around re-pairing.

// SetCoverPosition moves a cover to the given position, 0 closed to 100
// fully open.
func (c *Client) SetCoverPosition(ctx context.Context, deviceID string, position int) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidPosition, position)
	}

	device, ok := c.GetCoverDevice(deviceID)
	if !ok {
		c.logError("cover device not found", "device_id", deviceID)
		return nil
	}

	return c.writeAttributes(ctx, device.Data, blockLevel, map[string]any{
		"SetMoveToLevel": fmt.Sprintf("%02XFFFF", position),
	})
}

// OpenCover fully opens a cover.
func (c *Client) OpenCover(ctx context.Context, deviceID string) error {
	return c.SetCoverPosition(ctx, deviceID, 100)
}

// CloseCover fully closes a cover.
func (c *Client) CloseCover(ctx context.Context, deviceID string) error {
	return c.SetCoverPosition(ctx, deviceID, 0)
}

// TurnOnSwitch switches an on/off actuator on.
func (c *Client) TurnOnSwitch(ctx context.Context, deviceID string) error {
	return c.setSwitch(ctx, deviceID, 1)
}

// TurnOffSwitch switches an on/off actuator off.
func (c *Client) TurnOffSwitch(ctx context.Context, deviceID string) error {
	return c.setSwitch(ctx, deviceID, 0)
}

func (c *Client) setSwitch(ctx context.Context, deviceID string, value int) error {
	device, ok := c.GetSwitchDevice(deviceID)
	if !ok {
		c.logError("switch device not found", "device_id", deviceID)
		return nil
	}

	return c.writeAttributes(ctx, device.Data, blockOnOff, map[string]any{"SetOnOff": value})
}

// SetClimatePreset sets a thermostat's schedule override.
func (c *Client) SetClimatePreset(ctx context.Context, deviceID string, preset Preset) error {
	device, ok := c.GetClimateDevice(deviceID)
	if !ok {
		c.logError("climate device not found", "device_id", deviceID)
		return nil
	}

	if device.Model == "FC600" {
		var hold int
		switch preset {
		case PresetOff:
			hold = 7
		case PresetEco:
			hold = 10
		case PresetPermanentHold:
			hold = 2
		case PresetTemporaryHold:
			hold = 1
		default:
			hold = 0
		}
		return c.writeAttributes(ctx, device.Data, blockComm, map[string]any{"SetHoldType": hold})
	}

	var hold int
	switch preset {
	case PresetOff:
		hold = 7
	case PresetPermanentHold:
		hold = 2
	default:
		hold = 0
	}
	return c.writeAttributes(ctx, device.Data, blockIT600TH, map[string]any{"SetHoldType": hold})
}

// SetClimateMode sets a thermostat's operating mode.
func (c *Client) SetClimateMode(ctx context.Context, deviceID string, mode HVACMode) error {
	device, ok := c.GetClimateDevice(deviceID)
	if !ok {
		c.logError("climate device not found", "device_id", deviceID)
		return nil
	}

	if device.Model == "FC600" {
		var systemMode int
		switch mode {
		case HVACModeHeat:
			systemMode = 4
		case HVACModeCool:
			systemMode = 3
		default:
			systemMode = 1
		}
		return c.writeAttributes(ctx, device.Data, blockTher, map[string]any{"SetSystemMode": systemMode})
	}

	// Heat-only thermostats have no mode attribute; off maps to a
	// permanent hold and everything else back to the schedule.
	hold := 0
	if mode == HVACModeOff {
		hold = 7
	}
	return c.writeAttributes(ctx, device.Data, blockIT600TH, map[string]any{"SetHoldType": hold})
}

// SetClimateFanMode sets the fan speed on a fan-coil thermostat.
func (c *Client) SetClimateFanMode(ctx context.Context, deviceID string, mode FanMode) error {
	device, ok := c.GetClimateDevice(deviceID)
	if !ok {
		c.logError("climate device not found", "device_id", deviceID)
		return nil
	}

	var value int
	switch mode {
	case FanModeAuto:
		value = 5
	case FanModeHigh:
		value = 3
	case FanModeMedium:
		value = 2
	case FanModeLow:
		value = 1
	default:
		value = 0
	}

	return c.writeAttributes(ctx, device.Data, blockFan, map[string]any{"FanMode": value})
}

// SetClimateLocked locks or unlocks a thermostat's physical controls.
func (c *Client) SetClimateLocked(ctx context.Context, deviceID string, locked bool) error {
	device, ok := c.GetClimateDevice(deviceID)
	if !ok {
		c.logError("climate device not found", "device_id", deviceID)
		return nil
	}

	value := 0
	if locked {
		value = 1
	}

	return c.writeAttributes(ctx, device.Data, blockTherUI, map[string]any{"LockKey": value})
}

// SetClimateTemperature sets a thermostat's target temperature. The setpoint
// is rounded to the device's half degree resolution first. On an FC600 in
// cooling mode the cooling setpoint is written, otherwise the heating one.
func (c *Client) SetClimateTemperature(ctx context.Context, deviceID string, setpointCelsius float64) error {
	device, ok := c.GetClimateDevice(deviceID)
	if !ok {
		c.logError("climate device not found", "device_id", deviceID)
		return nil
	}

	value := int(RoundToHalf(setpointCelsius) * 100)

	if device.Model == "FC600" {
		attr := "SetHeatingSetpoint_x100"
		if device.HVACMode == HVACModeCool {
			attr = "SetCoolingSetpoint_x100"
		}
		return c.writeAttributes(ctx, device.Data, blockTher, map[string]any{attr: value})
	}

	return c.writeAttributes(ctx, device.Data, blockIT600TH, map[string]any{"SetHeatingSetpoint_x100": value})
}
