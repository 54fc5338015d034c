package bridge

import (
	"github.com/it600-go/it600/internal/gateway"
	"github.com/it600-go/it600/internal/history"
)

// State payload builders. Maps marshal with sorted keys, which keeps the
// published JSON stable for deduplication. Optional readings are omitted
// when the device family does not report them.

func gatewayState(d gateway.GatewayDevice) history.State {
	return history.State{
		"name":         d.Name,
		"unique_id":    d.UniqueID,
		"manufacturer": d.Manufacturer,
		"model":        d.Model,
		"sw_version":   d.SWVersion,
	}
}

func climateState(d gateway.ClimateDevice) history.State {
	state := history.State{
		"available":          d.Available,
		"name":               d.Name,
		"unique_id":          d.UniqueID,
		"manufacturer":       d.Manufacturer,
		"model":              d.Model,
		"sw_version":         d.SWVersion,
		"temperature_unit":   d.TemperatureUnit,
		"precision":          d.Precision,
		"temperature":        d.CurrentTemperature,
		"target_temperature": d.TargetTemperature,
		"max_temp":           d.MaxTemp,
		"min_temp":           d.MinTemp,
		"hvac_mode":          string(d.HVACMode),
		"hvac_action":        string(d.HVACAction),
		"hvac_modes":         modeStrings(d.HVACModes),
		"preset":             string(d.Preset),
		"preset_modes":       presetStrings(d.PresetModes),
		"supported_features": d.SupportedFeatures,
	}
	if d.CurrentHumidity != nil {
		state["humidity"] = *d.CurrentHumidity
	}
	if d.FanMode != nil {
		state["fan_mode"] = string(*d.FanMode)
		state["fan_modes"] = fanModeStrings(d.FanModes)
	}
	if d.Locked != nil {
		state["locked"] = *d.Locked
	}
	return state
}

func binarySensorState(d gateway.BinarySensorDevice) history.State {
	state := history.State{
		"available":    d.Available,
		"name":         d.Name,
		"unique_id":    d.UniqueID,
		"manufacturer": d.Manufacturer,
		"model":        d.Model,
		"sw_version":   d.SWVersion,
		"is_on":        d.IsOn,
		"device_class": d.DeviceClass,
	}
	if d.ParentUniqueID != "" {
		state["parent_unique_id"] = d.ParentUniqueID
	}
	if len(d.Errors) > 0 {
		state["errors"] = d.Errors
	}
	return state
}

func sensorState(d gateway.SensorDevice) history.State {
	state := history.State{
		"available":    d.Available,
		"name":         d.Name,
		"unique_id":    d.UniqueID,
		"manufacturer": d.Manufacturer,
		"model":        d.Model,
		"sw_version":   d.SWVersion,
		"state":        d.State,
		"unit":         d.Unit,
		"device_class": d.DeviceClass,
	}
	if d.ParentUniqueID != "" {
		state["parent_unique_id"] = d.ParentUniqueID
	}
	if d.EntityCategory != "" {
		state["entity_category"] = d.EntityCategory
	}
	return state
}

func switchState(d gateway.SwitchDevice) history.State {
	return history.State{
		"available":    d.Available,
		"name":         d.Name,
		"unique_id":    d.UniqueID,
		"manufacturer": d.Manufacturer,
		"model":        d.Model,
		"sw_version":   d.SWVersion,
		"is_on":        d.IsOn,
		"device_class": d.DeviceClass,
	}
}

func coverState(d gateway.CoverDevice) history.State {
	state := history.State{
		"available":          d.Available,
		"name":               d.Name,
		"unique_id":          d.UniqueID,
		"manufacturer":       d.Manufacturer,
		"model":              d.Model,
		"sw_version":         d.SWVersion,
		"position":           d.CurrentCoverPosition,
		"is_closed":          d.IsClosed,
		"supported_features": d.SupportedFeatures,
		"device_class":       d.DeviceClass,
	}
	if d.IsOpening != nil {
		state["is_opening"] = *d.IsOpening
	}
	if d.IsClosing != nil {
		state["is_closing"] = *d.IsClosing
	}
	return state
}

func modeStrings(modes []gateway.HVACMode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

func presetStrings(presets []gateway.Preset) []string {
	out := make([]string, len(presets))
	for i, p := range presets {
		out[i] = string(p)
	}
	return out
}

func fanModeStrings(modes []gateway.FanMode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}
