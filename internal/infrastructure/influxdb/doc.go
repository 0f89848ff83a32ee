// Package influxdb records graydb statistics in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library for connection
// management and non-blocking batched writes.
//
// # Measurements
//
//   - graydb_pool: periodic pool snapshots, tagged by driver
//   - graydb_parity: one point per harness run
//   - graydb_gate: one point per release gate evaluation
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	go influxdb.ReportPoolStats(ctx, p, client, 15*time.Second)
//
// # Error Handling
//
// Writes never block and never return errors; batch failures are
// delivered to the SetOnError callback. Connect and HealthCheck return
// errors directly.
package influxdb
