package types

import (
	"encoding/json"
	"time"
)

// ImageTask is one unit of batch work: a source image file and its position
// in the canonical batch ordering. Created when the batch is enumerated and
// consumed by exactly one worker.
type ImageTask struct {
	Index      int
	SourcePath string
}

// TaskOutcome records the terminal result of one ImageTask. A worker writes
// it once; it is never mutated after being handed to the aggregator.
type TaskOutcome struct {
	Index      int
	SourceName string
	Success    bool
	Detections []Detection
	Error      string
	Attempts   int
	Elapsed    time.Duration
}

// MarshalJSON emits the batch artifact shape: elapsed time as fractional
// seconds under "inference_time", detections present (possibly empty) on
// success and omitted on failure, error text only on failure.
func (o TaskOutcome) MarshalJSON() ([]byte, error) {
	type wire struct {
		Index         int          `json:"index"`
		Image         string       `json:"image"`
		Success       bool         `json:"success"`
		Detections    *[]Detection `json:"detections,omitempty"`
		Error         string       `json:"error,omitempty"`
		Attempts      int          `json:"attempts"`
		InferenceTime float64      `json:"inference_time"`
	}
	w := wire{
		Index:         o.Index,
		Image:         o.SourceName,
		Success:       o.Success,
		Attempts:      o.Attempts,
		InferenceTime: o.Elapsed.Seconds(),
	}
	if o.Success {
		dets := o.Detections
		if dets == nil {
			dets = []Detection{}
		}
		// pointer keeps an empty list in the artifact instead of dropping the key
		w.Detections = &dets
	} else {
		w.Error = o.Error
	}
	return json.Marshal(w)
}
