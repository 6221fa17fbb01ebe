// Package mqtt provides the MQTT client used by the accessory bridge.
//
// It wraps paho.mqtt.golang with:
//   - auto-reconnect, restoring subscriptions on every reconnect
//   - a retained Last Will on poolbridge/system/status
//   - input validation and publish/subscribe timeouts
//   - panic recovery around message handlers
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleCommand(topic, payload)
//	    })
//
//	client.Publish(mqtt.Topics{}.DeviceState("heater", "1"), payload, 1, true)
package mqtt
