package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/orehall/ironpin-core/internal/engine"
)

// Recorder tags pin samples with the recording unit and writes them to
// InfluxDB. It implements engine.SampleRecorder, so it can be handed to
// the engine directly as its time-series sink.
//
// All writes are non-blocking; points are batched and sent
// asynchronously by the underlying client.
type Recorder struct {
	client *Client
	unit   string
}

// NewRecorder creates a recorder for the given unit ID.
func NewRecorder(client *Client, unit string) *Recorder {
	return &Recorder{client: client, unit: unit}
}

// RecordPinSample writes one pin sample point.
//
// Measurement: pin_samples
// Tags: unit, pin (handle path form), mode
// Fields: value (raw engine value; fault sentinels are written as-is so
// open/short windows are visible in the series)
func (r *Recorder) RecordPinSample(ev engine.StateEvent) {
	if !r.client.IsConnected() {
		return
	}

	point := write.NewPoint(
		"pin_samples",
		map[string]string{
			"unit": r.unit,
			"pin":  ev.ID.String(),
			"mode": ev.Mode.String(),
		},
		map[string]interface{}{
			"value": int64(ev.Value),
		},
		time.Now(),
	)

	r.client.writeAPI.WritePoint(point)
}

// RecordRails writes one supply rail voltage point.
//
// Measurement: rails
// Tags: unit
// Fields: input_mv, output_mv
func (r *Recorder) RecordRails(inputMV, outputMV int) {
	if !r.client.IsConnected() {
		return
	}

	point := write.NewPoint(
		"rails",
		map[string]string{
			"unit": r.unit,
		},
		map[string]interface{}{
			"input_mv":  int64(inputMV),
			"output_mv": int64(outputMV),
		},
		time.Now(),
	)

	r.client.writeAPI.WritePoint(point)
}
