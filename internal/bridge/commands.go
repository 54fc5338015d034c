package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/it600-go/it600/internal/gateway"
	"github.com/it600-go/it600/internal/infrastructure/mqtt"
)

// Command actions accepted on it600/command/{device_id}.
const (
	ActionSetTemperature = "set_temperature"
	ActionSetMode        = "set_mode"
	ActionSetPreset      = "set_preset"
	ActionSetFanMode     = "set_fan_mode"
	ActionSetLocked      = "set_locked"
	ActionTurnOn         = "turn_on"
	ActionTurnOff        = "turn_off"
	ActionOpen           = "open"
	ActionClose          = "close"
	ActionSetPosition    = "set_position"
)

// commandMessage is the JSON envelope for incoming commands. Only the
// fields relevant to the action need to be set.
type commandMessage struct {
	RequestID   string   `json:"request_id,omitempty"`
	Action      string   `json:"action"`
	Temperature *float64 `json:"temperature,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Preset      string   `json:"preset,omitempty"`
	FanMode     string   `json:"fan_mode,omitempty"`
	Locked      *bool    `json:"locked,omitempty"`
	Position    *int     `json:"position,omitempty"`
}

// ackMessage is published on it600/ack/{device_id} for every command.
type ackMessage struct {
	RequestID string `json:"request_id"`
	DeviceID  string `json:"device_id"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// handleCommand processes one command message and always publishes an
// acknowledgement. Accepted commands trigger an immediate refresh so the
// resulting state lands on the retained topics.
func (b *Bridge) handleCommand(ctx context.Context, topic string, payload []byte) error {
	deviceID := deviceIDFromTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("command topic %q has no device id", topic)
	}

	var cmd commandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(deviceID, commandMessage{RequestID: uuid.NewString()}, fmt.Errorf("malformed command payload: %w", err))
		return fmt.Errorf("unmarshalling command for %s: %w", deviceID, err)
	}
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	b.logDebug("command received",
		"device_id", deviceID,
		"action", cmd.Action,
		"request_id", cmd.RequestID,
	)

	err := b.dispatch(ctx, deviceID, cmd)
	b.publishAck(deviceID, cmd, err)
	if err != nil {
		return fmt.Errorf("command %s for %s: %w", cmd.Action, deviceID, err)
	}

	b.refresh(ctx)
	return nil
}

// dispatch routes a command to the matching gateway operation.
func (b *Bridge) dispatch(ctx context.Context, deviceID string, cmd commandMessage) error {
	switch cmd.Action {
	case ActionSetTemperature:
		if cmd.Temperature == nil {
			return fmt.Errorf("set_temperature requires a temperature field")
		}
		return b.gw.SetClimateTemperature(ctx, deviceID, *cmd.Temperature)

	case ActionSetMode:
		mode, err := parseHVACMode(cmd.Mode)
		if err != nil {
			return err
		}
		return b.gw.SetClimateMode(ctx, deviceID, mode)

	case ActionSetPreset:
		preset, err := parsePreset(cmd.Preset)
		if err != nil {
			return err
		}
		return b.gw.SetClimatePreset(ctx, deviceID, preset)

	case ActionSetFanMode:
		fan, err := parseFanMode(cmd.FanMode)
		if err != nil {
			return err
		}
		return b.gw.SetClimateFanMode(ctx, deviceID, fan)

	case ActionSetLocked:
		if cmd.Locked == nil {
			return fmt.Errorf("set_locked requires a locked field")
		}
		return b.gw.SetClimateLocked(ctx, deviceID, *cmd.Locked)

	case ActionTurnOn:
		return b.gw.TurnOnSwitch(ctx, deviceID)

	case ActionTurnOff:
		return b.gw.TurnOffSwitch(ctx, deviceID)

	case ActionOpen:
		return b.gw.OpenCover(ctx, deviceID)

	case ActionClose:
		return b.gw.CloseCover(ctx, deviceID)

	case ActionSetPosition:
		if cmd.Position == nil {
			return fmt.Errorf("set_position requires a position field")
		}
		return b.gw.SetCoverPosition(ctx, deviceID, *cmd.Position)

	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
}

// publishAck publishes the command result. Ack publishes are best effort;
// a failed ack is logged but does not fail the command.
func (b *Bridge) publishAck(deviceID string, cmd commandMessage, cmdErr error) {
	ack := ackMessage{
		RequestID: cmd.RequestID,
		DeviceID:  deviceID,
		Action:    cmd.Action,
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if cmdErr != nil {
		ack.Status = "error"
		ack.Error = cmdErr.Error()
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.Ack(deviceID)
	if err := b.bus.Publish(topic, payload, b.qos, false); err != nil {
		b.logWarn("publishing ack", "topic", topic, "error", err)
	}
}

// deviceIDFromTopic extracts the device id from it600/command/{device_id}.
func deviceIDFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}

func parseHVACMode(value string) (gateway.HVACMode, error) {
	switch mode := gateway.HVACMode(value); mode {
	case gateway.HVACModeOff, gateway.HVACModeHeat, gateway.HVACModeCool, gateway.HVACModeAuto:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown hvac mode %q", value)
	}
}

func parsePreset(value string) (gateway.Preset, error) {
	switch preset := gateway.Preset(value); preset {
	case gateway.PresetFollowSchedule, gateway.PresetPermanentHold, gateway.PresetTemporaryHold,
		gateway.PresetEco, gateway.PresetOff:
		return preset, nil
	default:
		return "", fmt.Errorf("unknown preset %q", value)
	}
}

func parseFanMode(value string) (gateway.FanMode, error) {
	switch fan := gateway.FanMode(value); fan {
	case gateway.FanModeAuto, gateway.FanModeHigh, gateway.FanModeMedium, gateway.FanModeLow, gateway.FanModeOff:
		return fan, nil
	default:
		return "", fmt.Errorf("unknown fan mode %q", value)
	}
}
