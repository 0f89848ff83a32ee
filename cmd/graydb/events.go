package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-db/internal/infrastructure/mqtt"
)

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print graydb MQTT events (parity runs, proposals, gate results) until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.MQTT
			cfg.Enabled = true
			cfg.Broker.ClientID += "-events"

			client, err := mqtt.Connect(cfg)
			if err != nil {
				return fmt.Errorf("connecting to MQTT: %w", err)
			}
			defer client.Close() //nolint:errcheck // Process exits next
			client.SetLogger(a.log.Component("mqtt"))

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			topic := client.Topics().AllEvents()
			err = client.Subscribe(topic, byte(cfg.QoS), func(topic string, payload []byte) error {
				mu.Lock()
				defer mu.Unlock()
				_, err := fmt.Fprintf(out, "%s %s\n", topic, payload)
				return err
			})
			if err != nil {
				return err
			}
			a.log.Info("listening for events", "topic", topic)

			<-cmd.Context().Done()
			client.Unsubscribe(topic) //nolint:errcheck // Best effort on shutdown
			return nil
		},
	}
}
