package gateway

// HVACMode is an operating mode a climate device can be set to.
type HVACMode string

const (
	HVACModeOff  HVACMode = "off"
	HVACModeHeat HVACMode = "heat"
	HVACModeCool HVACMode = "cool"
	HVACModeAuto HVACMode = "auto"
)

// HVACAction is what a climate device is doing right now, as opposed to
// what it is set to do.
type HVACAction string

const (
	HVACActionOff     HVACAction = "off"
	HVACActionHeating HVACAction = "heating"
	HVACActionCooling HVACAction = "cooling"
	HVACActionIdle    HVACAction = "idle"
)

// Preset names the schedule-override state of a thermostat.
type Preset string

const (
	PresetFollowSchedule Preset = "Follow Schedule"
	PresetPermanentHold  Preset = "Permanent Hold"
	PresetTemporaryHold  Preset = "Temporary Hold"
	PresetEco            Preset = "Eco"
	PresetOff            Preset = "Off"
)

// FanMode is a fan speed on fan-coil thermostats.
type FanMode string

const (
	FanModeAuto   FanMode = "auto"
	FanModeHigh   FanMode = "high"
	FanModeMedium FanMode = "medium"
	FanModeLow    FanMode = "low"
	FanModeOff    FanMode = "off"
)

// Climate device feature flags, combined as a bitmask in
// ClimateDevice.SupportedFeatures.
const (
	SupportTargetTemperature = 1
	SupportFanMode           = 8
	SupportPresetMode        = 16
)

// Cover feature flags, combined as a bitmask in CoverDevice.SupportedFeatures.
const (
	SupportOpen        = 1
	SupportClose       = 2
	SupportSetPosition = 4
)

// GatewayDevice describes the hub itself.
type GatewayDevice struct {
	Name         string
	UniqueID     string
	Manufacturer string
	Model        string
	SWVersion    string

	Data map[string]any
}

// ClimateDevice is a decoded thermostat. Optional readings that the device
// family does not report are nil pointers.
type ClimateDevice struct {
	Available          bool
	Name               string
	UniqueID           string
	Manufacturer       string
	Model              string
	SWVersion          string
	TemperatureUnit    string
	Precision          float64
	CurrentTemperature float64
	TargetTemperature  float64
	MaxTemp            float64
	MinTemp            float64
	CurrentHumidity    *float64
	HVACMode           HVACMode
	HVACAction         HVACAction
	HVACModes          []HVACMode
	Preset             Preset
	PresetModes        []Preset
	FanMode            *FanMode
	FanModes           []FanMode
	Locked             *bool
	SupportedFeatures  int
	DeviceClass        string

	// Data is the raw addressing block echoed back on every write.
	Data map[string]any
}

// CoverDevice is a decoded roller shutter or similar positional actuator.
type CoverDevice struct {
	Available            bool
	Name                 string
	UniqueID             string
	Manufacturer         string
	Model                string
	SWVersion            string
	CurrentCoverPosition int
	IsOpening            *bool
	IsClosing            *bool
	IsClosed             bool
	SupportedFeatures    int
	DeviceClass          string

	Data map[string]any
}

// SwitchDevice is a decoded on/off actuator, typically a smart plug.
type SwitchDevice struct {
	Available    bool
	Name         string
	UniqueID     string
	Manufacturer string
	Model        string
	SWVersion    string
	IsOn         bool
	DeviceClass  string

	Data map[string]any
}

// SensorDevice is a decoded numeric reading. Derived readings carry the
// unique id of the device they were split from in ParentUniqueID.
type SensorDevice struct {
	Available      bool
	Name           string
	UniqueID       string
	ParentUniqueID string
	Manufacturer   string
	Model          string
	SWVersion      string
	State          float64
	Unit           string
	DeviceClass    string
	EntityCategory string

	Data map[string]any
}

// BinarySensorDevice is a decoded boolean reading. For thermostat error
// sensors, Errors lists the descriptions of the active error codes.
type BinarySensorDevice struct {
	Available      bool
	Name           string
	UniqueID       string
	ParentUniqueID string
	Manufacturer   string
	Model          string
	SWVersion      string
	IsOn           bool
	DeviceClass    string
	Errors         []string

	Data map[string]any
}
