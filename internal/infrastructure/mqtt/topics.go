package mqtt

import "fmt"

// Topic prefixes for the it600 bridge.
//
// State topics use the flat scheme: it600/state/{category}/{device_id}
// where category is one of climate, sensor, binary_sensor, switch, cover,
// or gateway.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "it600"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "it600/system"
)

// Topics provides builders for it600 MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("climate", "001e5e090214ffff")
//	// Returns: "it600/state/climate/001e5e090214ffff"
type Topics struct{}

// State returns the topic for device state updates.
//
// Example: it600/state/climate/001e5e090214ffff
func (Topics) State(category, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, category, deviceID)
}

// Command returns the topic for commands to a device.
//
// Example: it600/command/001e5e090214ffff
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Ack returns the topic for command acknowledgements.
//
// Example: it600/ack/001e5e090214ffff
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the bridge status topic. The daemon publishes
// online/offline payloads here, and the broker publishes the LWT here on
// unexpected disconnect.
//
// Example: it600/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// GatewayStatus returns the gateway reachability topic.
//
// Example: it600/system/gateway
func (Topics) GatewayStatus() string {
	return fmt.Sprintf("%s/gateway", TopicPrefixSystem)
}

// AllStates returns a pattern matching all device state updates.
//
// Pattern: it600/state/+/+
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefix)
}

// AllCommands returns a pattern matching all device commands.
//
// Pattern: it600/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllAcks returns a pattern matching all command acknowledgements.
//
// Pattern: it600/ack/+
func (Topics) AllAcks() string {
	return fmt.Sprintf("%s/ack/+", TopicPrefix)
}

// AllTopics returns a pattern matching all it600 topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: it600/#
func (Topics) AllTopics() string {
	return "it600/#"
}
