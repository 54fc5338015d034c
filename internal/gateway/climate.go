package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// climateExtras carries the child entities split off a thermostat row:
// humidity and battery readings plus the aggregated error sensors.
type climateExtras struct {
	Humidity     *SensorDevice
	Battery      *SensorDevice
	Problem      *BinarySensorDevice
	BatteryError *BinarySensorDevice
}

func (c *Client) refreshClimateDevices(ctx context.Context, matched []map[string]any, notify bool) error {
	local := map[string]ClimateDevice{}
	batteryLocal := map[string]SensorDevice{}
	humidityLocal := map[string]SensorDevice{}
	errorLocal := map[string]BinarySensorDevice{}
	refreshed := map[string]struct{}{}

	rows, err := c.readDetails(ctx, matched)
	if err != nil {
		return err
	}

	for _, row := range rows {
		device, extras, err := decodeClimateRow(row)
		if err != nil {
			c.logError("failed to decode climate device", "error", err)
			continue
		}
		if device == nil {
			continue
		}

		local[device.UniqueID] = *device
		refreshed[device.UniqueID] = struct{}{}

		if extras.Humidity != nil {
			humidityLocal[extras.Humidity.UniqueID] = *extras.Humidity
		}
		if extras.Battery != nil {
			batteryLocal[extras.Battery.UniqueID] = *extras.Battery
		}
		if extras.Problem != nil {
			errorLocal[extras.Problem.UniqueID] = *extras.Problem
			errorLocal[extras.BatteryError.UniqueID] = *extras.BatteryError
		}
	}

	c.stateMu.Lock()
	c.climateDevices = local
	c.batterySensors = batteryLocal
	c.humiditySensors = humidityLocal
	c.errorBinarySensors = errorLocal
	c.stateMu.Unlock()

	c.logDebug("refreshed climate devices", "count", len(local))

	if notify {
		c.notifyListeners(&c.climateListeners, refreshed)
	}

	return nil
}

// decodeClimateRow decodes one thermostat row. It returns a nil device for
// rows that carry neither thermostat dialect, and an error for rows missing
// required attributes.
func decodeClimateRow(row map[string]any) (*ClimateDevice, climateExtras, error) {
	var extras climateExtras

	id, ok := uniqueID(row)
	if !ok {
		return nil, extras, nil
	}
	data, _ := rowData(row)

	model := modelIdentifier(row)
	name := deviceName(row, "Unknown")

	device := ClimateDevice{
		Available:       available(row),
		Name:            name,
		UniqueID:        id,
		Manufacturer:    manufacturer(row),
		Model:           model,
		SWVersion:       firmwareVersion(row),
		TemperatureUnit: "°C",
		Precision:       0.1,
		DeviceClass:     "temperature",
		Data:            data,
	}

	th := nested(row, blockIT600TH)
	ther := nested(row, blockTher)
	comm := nested(row, blockComm)
	fan := nested(row, blockFan)

	switch {
	case th != nil:
		if err := decodeHeatingThermostat(&device, &extras, th, id, name, model, data); err != nil {
			return nil, extras, err
		}
	case ther != nil && comm != nil && fan != nil:
		if err := decodeFanCoilThermostat(&device, row, ther, comm, fan, id); err != nil {
			return nil, extras, err
		}
	default:
		return nil, extras, nil
	}

	return &device, extras, nil
}

// decodeHeatingThermostat fills in a heat-only iT600 thermostat from its
// sIT600TH block, including the derived humidity, battery and error
// children.
func decodeHeatingThermostat(device *ClimateDevice, extras *climateExtras, th map[string]any, id, name, model string, data map[string]any) error {
	hold, ok := rawInt(th, "HoldType")
	if !ok {
		return fmt.Errorf("climate %s: missing sIT600TH.HoldType", id)
	}
	running, ok := rawInt(th, "RunningState")
	if !ok {
		return fmt.Errorf("climate %s: missing sIT600TH.RunningState", id)
	}
	localTemp, ok := rawNumber(th, "LocalTemperature_x100")
	if !ok {
		return fmt.Errorf("climate %s: missing sIT600TH.LocalTemperature_x100", id)
	}
	target, ok := rawNumber(th, "HeatingSetpoint_x100")
	if !ok {
		return fmt.Errorf("climate %s: missing sIT600TH.HeatingSetpoint_x100", id)
	}

	device.CurrentTemperature = localTemp / 100
	device.TargetTemperature = target / 100
	device.MaxTemp = numberOrDefault(th, "MaxHeatSetpoint_x100", 3500) / 100
	device.MinTemp = numberOrDefault(th, "MinHeatSetpoint_x100", 500) / 100

	switch {
	case hold == 7:
		device.HVACMode = HVACModeOff
	case hold == 2:
		device.HVACMode = HVACModeHeat
	default:
		device.HVACMode = HVACModeAuto
	}

	switch {
	case hold == 7:
		device.HVACAction = HVACActionOff
	case running%2 == 0:
		device.HVACAction = HVACActionIdle
	default:
		device.HVACAction = HVACActionHeating
	}

	switch {
	case hold == 7:
		device.Preset = PresetOff
	case hold == 2:
		device.Preset = PresetPermanentHold
	default:
		device.Preset = PresetFollowSchedule
	}

	device.HVACModes = []HVACMode{HVACModeOff, HVACModeHeat, HVACModeAuto}
	device.PresetModes = []Preset{PresetFollowSchedule, PresetPermanentHold, PresetOff}
	device.SupportedFeatures = SupportTargetTemperature | SupportPresetMode

	// The humidity capability flag lives at hex positions 32-33 of the
	// status string, per the official Salus cloud app. SQ610 models other
	// than the RFNH variant carry a humidity sensor even when the flag is
	// absent.
	statusD, _ := rawString(th, "Status_d")
	heatingCtrl := 0
	if len(statusD) >= 34 {
		v, err := strconv.ParseInt(statusD[32:34], 16, 32)
		if err != nil {
			return fmt.Errorf("climate %s: malformed Status_d %q: %w", id, statusD, err)
		}
		heatingCtrl = int(v)
	}
	modelHasHumidity := strings.Contains(model, "SQ610") && !strings.Contains(model, "RFNH")

	if heatingCtrl == 1 || modelHasHumidity {
		// SunnySetpoint_x100 is misnamed in the protocol: it holds the
		// relative humidity as a plain 0-100 value.
		if sunny, ok := rawNumber(th, "SunnySetpoint_x100"); ok {
			humidity := sunny
			device.CurrentHumidity = &humidity
			extras.Humidity = &SensorDevice{
				Available:      device.Available,
				Name:           name + " Humidity",
				UniqueID:       id + "_humidity",
				ParentUniqueID: id,
				Manufacturer:   device.Manufacturer,
				Model:          model,
				SWVersion:      device.SWVersion,
				State:          humidity,
				Unit:           "%",
				DeviceClass:    "humidity",
				Data:           data,
			}
		}
	}

	// Battery digit at position 99 of the status string, 0-5. Mains
	// powered models report a meaningless digit and are skipped.
	if batteryPoweredModels[model] && len(statusD) > 99 {
		digit := int(statusD[99] - '0')
		if pct, ok := batteryDigitPercent(digit); ok {
			extras.Battery = &SensorDevice{
				Available:      device.Available,
				Name:           name + " Battery",
				UniqueID:       id + "_battery",
				ParentUniqueID: id,
				Manufacturer:   device.Manufacturer,
				Model:          model,
				SWVersion:      device.SWVersion,
				State:          float64(pct),
				Unit:           "%",
				DeviceClass:    "battery",
				EntityCategory: "diagnostic",
				Data:           data,
			}
		}
	}

	// Aggregate the Error01..Error32 flags into one problem sensor and one
	// battery sensor per thermostat. Both are always emitted so an all
	// clear state stays visible.
	var problems, batteryProblems []string
	for _, te := range thermostatErrors {
		if v, ok := rawInt(th, te.Code); ok && v == 1 {
			if thermostatBatteryErrors[te.Code] {
				batteryProblems = append(batteryProblems, te.Description)
			} else {
				problems = append(problems, te.Description)
			}
		}
	}

	extras.Problem = &BinarySensorDevice{
		Available:      device.Available,
		Name:           name + " Problem",
		UniqueID:       id + "_problem",
		ParentUniqueID: id,
		Manufacturer:   device.Manufacturer,
		Model:          model,
		SWVersion:      device.SWVersion,
		IsOn:           len(problems) > 0,
		DeviceClass:    "problem",
		Errors:         problems,
		Data:           data,
	}
	extras.BatteryError = &BinarySensorDevice{
		Available:      device.Available,
		Name:           name + " Battery problem",
		UniqueID:       id + "_battery_error",
		ParentUniqueID: id,
		Manufacturer:   device.Manufacturer,
		Model:          model,
		SWVersion:      device.SWVersion,
		IsOn:           len(batteryProblems) > 0,
		DeviceClass:    "battery",
		Errors:         batteryProblems,
		Data:           data,
	}

	return nil
}

// decodeFanCoilThermostat fills in an FC600 fan-coil controller from its
// sTherS, sComm and sFanS blocks.
func decodeFanCoilThermostat(device *ClimateDevice, row, ther, comm, fan map[string]any, id string) error {
	systemMode, ok := rawInt(ther, "SystemMode")
	if !ok {
		return fmt.Errorf("climate %s: missing sTherS.SystemMode", id)
	}
	hold, ok := rawInt(comm, "HoldType")
	if !ok {
		return fmt.Errorf("climate %s: missing sComm.HoldType", id)
	}
	running, ok := rawInt(ther, "RunningState")
	if !ok {
		return fmt.Errorf("climate %s: missing sTherS.RunningState", id)
	}
	localTemp, ok := rawNumber(ther, "LocalTemperature_x100")
	if !ok {
		return fmt.Errorf("climate %s: missing sTherS.LocalTemperature_x100", id)
	}

	isHeating := systemMode == 4

	var target float64
	if isHeating {
		target, ok = rawNumber(ther, "HeatingSetpoint_x100")
		if !ok {
			return fmt.Errorf("climate %s: missing sTherS.HeatingSetpoint_x100", id)
		}
		device.MaxTemp = numberOrDefault(ther, "MaxHeatSetpoint_x100", 4000) / 100
		device.MinTemp = numberOrDefault(ther, "MinHeatSetpoint_x100", 500) / 100
	} else {
		target, ok = rawNumber(ther, "CoolingSetpoint_x100")
		if !ok {
			return fmt.Errorf("climate %s: missing sTherS.CoolingSetpoint_x100", id)
		}
		device.MaxTemp = numberOrDefault(ther, "MaxCoolSetpoint_x100", 4000) / 100
		device.MinTemp = numberOrDefault(ther, "MinCoolSetpoint_x100", 500) / 100
	}

	device.CurrentTemperature = localTemp / 100
	device.TargetTemperature = target / 100

	switch systemMode {
	case 4:
		device.HVACMode = HVACModeHeat
	case 3:
		device.HVACMode = HVACModeCool
	default:
		device.HVACMode = HVACModeAuto
	}

	switch {
	case hold == 7:
		device.HVACAction = HVACActionOff
	case running == 0:
		device.HVACAction = HVACActionIdle
	case isHeating && running == 33:
		device.HVACAction = HVACActionHeating
	case isHeating:
		device.HVACAction = HVACActionIdle
	case running == 66:
		device.HVACAction = HVACActionCooling
	default:
		device.HVACAction = HVACActionIdle
	}

	switch hold {
	case 7:
		device.Preset = PresetOff
	case 2:
		device.Preset = PresetPermanentHold
	case 10:
		device.Preset = PresetEco
	case 1:
		device.Preset = PresetTemporaryHold
	default:
		device.Preset = PresetFollowSchedule
	}

	fanMode := FanModeAuto
	switch intOrDefault(fan, "FanMode", 5) {
	case 0:
		fanMode = FanModeOff
	case 1:
		fanMode = FanModeLow
	case 2:
		fanMode = FanModeMedium
	case 3:
		fanMode = FanModeHigh
	}
	device.FanMode = &fanMode
	device.FanModes = []FanMode{FanModeAuto, FanModeHigh, FanModeMedium, FanModeLow, FanModeOff}

	locked := intOrDefault(nested(row, blockTherUI), "LockKey", 0) == 1
	device.Locked = &locked

	device.HVACModes = []HVACMode{HVACModeHeat, HVACModeCool, HVACModeAuto}
	device.PresetModes = []Preset{
		PresetOff, PresetPermanentHold, PresetEco, PresetTemporaryHold, PresetFollowSchedule,
	}
	device.SupportedFeatures = SupportTargetTemperature | SupportPresetMode | SupportFanMode

	return nil
}
