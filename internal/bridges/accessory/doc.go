// Package accessory bridges pool devices onto MQTT for home-automation
// consumers such as HomeKit gateways or Node-RED.
//
// Topic layout:
//
//	poolbridge/state/{kind}/{unit}    retained StateMessage (bridge → consumers)
//	poolbridge/command/{kind}/{unit}  CommandMessage (consumers → bridge)
//	poolbridge/ack/{kind}/{unit}      AckMessage (bridge → consumers)
//	poolbridge/health                 retained HealthMessage every 30s
//
// Commands are run through the engine dispatcher, so they are validated,
// debounced and applied optimistically before the controller is called.
// State messages are published for both poll results and optimistic updates.
package accessory
