// Package influxdb provides InfluxDB connectivity for the afaudio daemon.
//
// It wraps the official influxdb-client-go v2 library with afaudio-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Device volume and mute telemetry
//   - Monitor process uptime tracking
//   - Pipeline statistics (decode errors, stream faults)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "afaudio",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write volume telemetry
//	client.WriteVolume("speakers-1", 55, false)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
