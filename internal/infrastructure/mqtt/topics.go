package mqtt

import "fmt"

// TopicPrefix is the root of every poolbridge topic.
//
// Device topics use a flat scheme: poolbridge/{category}/{kind}/{unit}
const TopicPrefix = "poolbridge"

// Topics provides builders for poolbridge MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("heater", "1")
//	// Returns: "poolbridge/state/heater/1"
type Topics struct{}

// DeviceState returns the retained state topic for one device.
//
// Example: poolbridge/state/heater/1
func (Topics) DeviceState(kind, unit string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, kind, unit)
}

// DeviceCommand returns the command topic for one device.
//
// Example: poolbridge/command/lighting/2
func (Topics) DeviceCommand(kind, unit string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, kind, unit)
}

// DeviceAck returns the acknowledgement topic for one device.
//
// Example: poolbridge/ack/channel/3
func (Topics) DeviceAck(kind, unit string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, kind, unit)
}

// Health returns the bridge health topic.
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// SystemStatus returns the connection status topic carrying the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllDeviceStates matches every device state topic.
//
// Pattern: poolbridge/state/+/+
func (Topics) AllDeviceStates() string {
	return TopicPrefix + "/state/+/+"
}

// AllDeviceCommands matches every device command topic.
//
// Pattern: poolbridge/command/+/+
func (Topics) AllDeviceCommands() string {
	return TopicPrefix + "/command/+/+"
}

// AllDeviceAcks matches every acknowledgement topic.
//
// Pattern: poolbridge/ack/+/+
func (Topics) AllDeviceAcks() string {
	return TopicPrefix + "/ack/+/+"
}

// AllTopics matches all poolbridge traffic.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
