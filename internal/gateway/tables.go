package gateway

// Protocol cluster block names as they appear in raw device rows.
const (
	blockGateway    = "sGateway"
	blockZDO        = "sZDO"
	blockZDOInfo    = "sZDOInfo"
	blockBasic      = "sBasicS"
	blockDeviceList = "DeviceL"
	blockOTA        = "sOTA"
	blockIT600TH    = "sIT600TH"
	blockIT600I     = "sIT600I"
	blockTher       = "sTherS"
	blockTherUI     = "sTherUIS"
	blockComm       = "sComm"
	blockFan        = "sFanS"
	blockIASZone    = "sIASZS"
	blockTemp       = "sTempS"
	blockHumidity   = "sRelativeHumidity"
	blockPower      = "sPowerS"
	blockOnOff      = "sOnOffS"
	blockLevel      = "sLevelS"
	blockButton     = "sButtonS"
	blockMetering   = "sMeteringS"
)

// batteryLevelPercent maps the single status digit reported by battery
// thermostats to a charge percentage.
var batteryLevelPercent = map[int]int{
	0: 0,
	1: 20,
	2: 40,
	3: 60,
	4: 80,
	5: 100,
}

// batteryPoweredModels lists thermostat models that report the battery
// status digit. Mains powered variants report a meaningless digit and are
// excluded.
var batteryPoweredModels = map[string]bool{
	"SQ610RF":     true,
	"SQ610RF(WB)": true,
	"TS600":       true,
	"HTRP-RF(50)": true,
}

// voltageStep is one point on a battery discharge curve: at or above Volts
// the cell is at Percent.
type voltageStep struct {
	Volts   float64
	Percent int
}

// Battery discharge curves per device family, highest voltage first.
// Readings below the last step map to 0%.
var (
	doorSensorCurve = []voltageStep{
		{2.9, 100},
		{2.8, 50},
		{2.2, 25},
	}

	windowSensorCurve = []voltageStep{
		{3.0, 100},
		{2.9, 75},
		{2.8, 50},
		{2.4, 25},
	}

	energyMeterCurve = []voltageStep{
		{3.1, 100},
		{3.0, 75},
		{2.9, 50},
		{2.7, 25},
	}
)

var windowSensorModels = map[string]bool{
	"SW600": true,
	"OS600": true,
}

var energyMeterModels = map[string]bool{
	"ESM-ZW": true,
	"PS600":  true,
	"SPE600": true,
}

// batteryVoltageCurve picks the discharge curve for a model. Unknown models
// fall back to the door sensor curve, which is the most common family.
func batteryVoltageCurve(model string) []voltageStep {
	switch {
	case windowSensorModels[model]:
		return windowSensorCurve
	case energyMeterModels[model]:
		return energyMeterCurve
	default:
		return doorSensorCurve
	}
}

// outletModels are switches reported with the "outlet" device class instead
// of the generic "switch".
var outletModels = map[string]bool{
	"SP600":  true,
	"SPE600": true,
}

// relayBinarySensorModels report their state through the sIT600I relay
// status rather than the IAS zone alarm bit.
var relayBinarySensorModels = map[string]bool{
	"it600MINITRV":  true,
	"it600Receiver": true,
}

// binarySensorDeviceClass maps a model to the class of its primary reading.
var binarySensorDeviceClass = map[string]string{
	"SW600":          "window",
	"OS600":          "window",
	"WLS600":         "moisture",
	"SmokeSensor-EM": "smoke",
	"it600MINITRV":   "heat",
	"it600Receiver":  "running",
}

// coverDeviceClass maps a model to a cover class. Absent models keep the
// generic class.
var coverDeviceClass = map[string]string{
	"RS600": "shutter",
}

// thermostatError pairs a protocol error flag with its human description.
// Order matters: active descriptions are reported in this order.
type thermostatError struct {
	Code        string
	Description string
}

var thermostatErrors = []thermostatError{
	{"Error01", "Built-in temperature sensor failure"},
	{"Error02", "Floor temperature sensor failure"},
	{"Error03", "Air temperature sensor failure"},
	{"Error04", "Floor temperature sensor short circuit"},
	{"Error05", "Air temperature sensor short circuit"},
	{"Error06", "Internal clock failure"},
	{"Error07", "Wiring centre communication lost"},
	{"Error08", "Receiver communication lost"},
	{"Error09", "Coordinator communication lost"},
	{"Error10", "Paired device communication lost"},
	{"Error11", "Overheat protection active"},
	{"Error12", "Frost protection active"},
	{"Error21", "Thermostat battery low"},
	{"Error22", "TRV battery low"},
	{"Error23", "Sensor battery low"},
	{"Error24", "Regulator fault"},
	{"Error25", "Valve fault"},
	{"Error30", "Configuration corrupted"},
	{"Error31", "Firmware update failed"},
	{"Error32", "Hardware fault"},
}

// thermostatBatteryErrors is the subset of error flags that describe battery
// problems rather than equipment problems.
var thermostatBatteryErrors = map[string]bool{
	"Error21": true,
	"Error22": true,
	"Error23": true,
}
