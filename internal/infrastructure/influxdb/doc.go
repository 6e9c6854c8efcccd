// Package influxdb provides InfluxDB connectivity for IronPin Core.
//
// It wraps the official influxdb-client-go v2 library with IronPin-specific
// patterns for connection management, sample recording, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Periodic pin samples from the supervisor loop
//   - Supply rail voltage trends
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "ironpin",
//	    Bucket: "samples",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Hand the recorder to the engine as its sample sink
//	recorder := influxdb.NewRecorder(client, cfg.Controller.ID)
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
// This keeps network overhead flat even at a 20ms supervisor period.
package influxdb
