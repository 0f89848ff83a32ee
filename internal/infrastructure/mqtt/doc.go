// Package mqtt publishes graydb events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Governance and parity events (Events)
//
// # Topics
//
// All topics live under a configurable prefix (default "graydb"):
//
//	graydb/system/status          retained online/offline status
//	graydb/parity/runs            one summary per harness run
//	graydb/deviations/proposed    records created by the harness
//	graydb/gate                   retained release gate result
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) outside local development
//   - Credentials are validated against the broker ACL
//   - Payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	events := mqtt.NewEvents(client)
//	h := parity.New(ref, cand, reg, parity.WithNotifier(events))
//
//	err = client.Subscribe(client.Topics().AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Info("event", "topic", topic, "payload", string(payload))
//	        return nil
//	    })
package mqtt
