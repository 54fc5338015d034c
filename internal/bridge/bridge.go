package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/it600-go/it600/internal/gateway"
	"github.com/it600-go/it600/internal/history"
	"github.com/it600-go/it600/internal/infrastructure/mqtt"
)

// Device categories used in state topics and history records.
const (
	CategoryGateway      = "gateway"
	CategoryClimate      = "climate"
	CategoryBinarySensor = "binary_sensor"
	CategorySensor       = "sensor"
	CategorySwitch       = "switch"
	CategoryCover        = "cover"
)

// Gateway is the gateway client surface the bridge consumes.
type Gateway interface {
	PollStatus(ctx context.Context, notify bool) error

	GetGatewayDevice() *gateway.GatewayDevice
	GetClimateDevices() map[string]gateway.ClimateDevice
	GetBinarySensorDevices() map[string]gateway.BinarySensorDevice
	GetSensorDevices() map[string]gateway.SensorDevice
	GetSwitchDevices() map[string]gateway.SwitchDevice
	GetCoverDevices() map[string]gateway.CoverDevice

	SetClimateTemperature(ctx context.Context, deviceID string, setpointCelsius float64) error
	SetClimateMode(ctx context.Context, deviceID string, mode gateway.HVACMode) error
	SetClimatePreset(ctx context.Context, deviceID string, preset gateway.Preset) error
	SetClimateFanMode(ctx context.Context, deviceID string, mode gateway.FanMode) error
	SetClimateLocked(ctx context.Context, deviceID string, locked bool) error
	TurnOnSwitch(ctx context.Context, deviceID string) error
	TurnOffSwitch(ctx context.Context, deviceID string) error
	OpenCover(ctx context.Context, deviceID string) error
	CloseCover(ctx context.Context, deviceID string) error
	SetCoverPosition(ctx context.Context, deviceID string, position int) error
}

// MessageBus is the MQTT client surface the bridge consumes.
type MessageBus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Telemetry is the time-series client surface the bridge consumes.
type Telemetry interface {
	WriteClimateMetrics(deviceID string, temperature, setpoint float64, action string)
	WriteSensorMetric(deviceID string, sensorType string, value float64)
	WriteEnergyMetric(deviceID string, powerWatts, energyKWh float64)
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// Logger is the logging surface the bridge consumes.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config assembles a Bridge.
type Config struct {
	Gateway Gateway
	Bus     MessageBus

	// History is optional; nil disables snapshot recording.
	History history.Repository

	// Telemetry is optional; nil disables time-series writes.
	Telemetry Telemetry

	Logger Logger

	// QoS for command subscriptions and ack publishes.
	QoS byte
}

// Bridge publishes device state to MQTT and dispatches incoming commands
// to the gateway.
type Bridge struct {
	gw        Gateway
	bus       MessageBus
	repo      history.Repository
	telemetry Telemetry
	logger    Logger
	qos       byte

	// pollMu serializes poll-and-publish cycles, including refreshes
	// triggered by commands.
	pollMu sync.Mutex

	// lastPublished deduplicates retained state payloads per topic.
	lastPublished map[string][]byte
	lastMu        sync.Mutex
}

// New creates a Bridge. Gateway and Bus are required.
func New(cfg Config) (*Bridge, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("bridge: gateway client is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("bridge: message bus is required")
	}

	return &Bridge{
		gw:            cfg.Gateway,
		bus:           cfg.Bus,
		repo:          cfg.History,
		telemetry:     cfg.Telemetry,
		logger:        cfg.Logger,
		qos:           cfg.QoS,
		lastPublished: make(map[string][]byte),
	}, nil
}

// Start subscribes to the command topic. Call once after the MQTT client
// is connected; subscription restoration on reconnect is handled by the
// MQTT layer.
func (b *Bridge) Start(ctx context.Context) error {
	topic := mqtt.Topics{}.AllCommands()
	err := b.bus.Subscribe(topic, b.qos, func(topic string, payload []byte) error {
		return b.handleCommand(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	return nil
}

// PollOnce runs a single poll-and-publish cycle: refresh all devices from
// the gateway, then publish changed states, history snapshots, and
// telemetry.
//
// On poll failure the gateway status topic is set to offline and the
// error returned; previously published device states are left retained.
func (b *Bridge) PollOnce(ctx context.Context) error {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	start := time.Now()
	if err := b.gw.PollStatus(ctx, false); err != nil {
		b.publishGatewayStatus(false, err)
		return fmt.Errorf("polling gateway: %w", err)
	}
	b.publishGatewayStatus(true, nil)

	published := b.publishAll(ctx, history.SourcePoll)

	if b.telemetry != nil {
		if gw := b.gw.GetGatewayDevice(); gw != nil {
			b.telemetry.WritePoint("poll_cycle",
				map[string]string{"gateway": gw.UniqueID},
				map[string]interface{}{
					"duration_ms": float64(time.Since(start).Milliseconds()),
					"published":   published,
				},
			)
		}
	}

	return nil
}

// refresh re-polls after an accepted command so the resulting state is
// published immediately.
func (b *Bridge) refresh(ctx context.Context) {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	if err := b.gw.PollStatus(ctx, false); err != nil {
		b.logWarn("post-command refresh failed", "error", err)
		return
	}
	b.publishAll(ctx, history.SourceCommand)
}

// publishAll publishes every changed device state and returns the number
// of publishes performed.
func (b *Bridge) publishAll(ctx context.Context, source string) int {
	published := 0

	if gw := b.gw.GetGatewayDevice(); gw != nil {
		if b.publishState(ctx, CategoryGateway, gw.UniqueID, gatewayState(*gw), source) {
			published++
		}
	}

	for id, d := range b.gw.GetClimateDevices() {
		if b.publishState(ctx, CategoryClimate, id, climateState(d), source) {
			published++
		}
		if b.telemetry != nil {
			b.telemetry.WriteClimateMetrics(id, d.CurrentTemperature, d.TargetTemperature, string(d.HVACAction))
		}
	}

	for id, d := range b.gw.GetBinarySensorDevices() {
		if b.publishState(ctx, CategoryBinarySensor, id, binarySensorState(d), source) {
			published++
		}
	}

	for id, d := range b.gw.GetSensorDevices() {
		if b.publishState(ctx, CategorySensor, id, sensorState(d), source) {
			published++
		}
		if b.telemetry != nil && d.DeviceClass != "" {
			b.telemetry.WriteSensorMetric(id, d.DeviceClass, d.State)
		}
	}

	switches := b.gw.GetSwitchDevices()
	for id, d := range switches {
		if b.publishState(ctx, CategorySwitch, id, switchState(d), source) {
			published++
		}
	}
	b.writeEnergyTelemetry(switches)

	for id, d := range b.gw.GetCoverDevices() {
		if b.publishState(ctx, CategoryCover, id, coverState(d), source) {
			published++
		}
	}

	return published
}

// writeEnergyTelemetry pairs the power and energy child sensors of
// metering plugs into single energy points.
func (b *Bridge) writeEnergyTelemetry(switches map[string]gateway.SwitchDevice) {
	if b.telemetry == nil {
		return
	}

	sensors := b.gw.GetSensorDevices()
	for id := range switches {
		power, hasPower := sensors[id+"_power"]
		if !hasPower {
			continue
		}
		var energyKWh float64
		if energy, ok := sensors[id+"_energy"]; ok {
			energyKWh = energy.State
		}
		b.telemetry.WriteEnergyMetric(id, power.State, energyKWh)
	}
}

// publishState publishes one retained state payload if it changed since
// the last publish. Returns true when a publish happened.
func (b *Bridge) publishState(ctx context.Context, category, deviceID string, state history.State, source string) bool {
	payload, err := json.Marshal(state)
	if err != nil {
		b.logError("marshalling state", "device_id", deviceID, "error", err)
		return false
	}

	topic := mqtt.Topics{}.State(category, deviceID)

	b.lastMu.Lock()
	unchanged := string(b.lastPublished[topic]) == string(payload)
	if !unchanged {
		b.lastPublished[topic] = payload
	}
	b.lastMu.Unlock()

	if unchanged {
		return false
	}

	if err := b.bus.PublishRetained(topic, payload); err != nil {
		b.logError("publishing state", "topic", topic, "error", err)
		return false
	}

	if b.repo != nil {
		if err := b.repo.RecordStateChange(ctx, deviceID, category, state, source); err != nil {
			b.logWarn("recording state history", "device_id", deviceID, "error", err)
		}
	}

	return true
}

// publishGatewayStatus publishes gateway reachability to the system topic.
func (b *Bridge) publishGatewayStatus(online bool, cause error) {
	status := map[string]any{
		"status":    "online",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if !online {
		status["status"] = "offline"
		if cause != nil {
			status["error"] = cause.Error()
		}
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := b.bus.PublishRetained(mqtt.Topics{}.GatewayStatus(), payload); err != nil {
		b.logWarn("publishing gateway status", "error", err)
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
