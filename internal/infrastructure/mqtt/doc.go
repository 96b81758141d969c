// Package mqtt provides MQTT client connectivity for the afaudio daemon.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The daemon publishes device state and change events to the broker and
// accepts control commands on an inbound command topic, so home-automation
// systems can observe and drive audio without touching the HTTP API.
//
//	afaudio daemon ↔ MQTT Broker ↔ automation controllers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to inbound commands
//	err = client.Subscribe(mqtt.Topics{}.Command(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish device state
//	topic := mqtt.Topics{}.DeviceState("speakers-1")
//	client.Publish(topic, snapshotJSON, 1, true)
package mqtt
