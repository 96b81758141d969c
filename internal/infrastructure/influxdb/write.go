package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteVolume writes a device volume measurement to InfluxDB.
//
// This is the primary method for recording audio telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Audio device identifier
//   - volume: Current volume level (0-100)
//   - muted: Current mute state
//
// Example:
//
//	client.WriteVolume("speakers-1", 55, false)
func (c *Client) WriteVolume(deviceID string, volume int, muted bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_volume",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"volume": volume,
			"muted":  muted,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteProcessUptime writes a monitor process uptime measurement.
//
// Used for tracking how long the supervised process has been running and
// spotting crash loops in dashboards.
//
// Parameters:
//   - pid: Process ID of the monitor executable
//   - uptime: Time since the process was spawned
func (c *Client) WriteProcessUptime(pid int, uptime time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"process",
		map[string]string{},
		map[string]interface{}{
			"pid":       pid,
			"uptime_ms": uptime.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("pipeline_stats",
//	    map[string]string{"stream": "stdout"},
//	    map[string]interface{}{"decode_errors": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
