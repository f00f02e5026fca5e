package types

import (
	"encoding/json"
	"time"
)

// BatchStats aggregates a finished batch: counts, detection totals, timing
// and the per-label histogram. Pure function of the outcome list plus the
// measured wall time; see the batch package for construction.
type BatchStats struct {
	TotalImages     int
	Successful      int
	Failed          int
	TotalDetections int
	TotalTime       time.Duration
	AvgInference    time.Duration
	ImagesPerSecond float64
	ClassCounts     map[string]int
}

// MarshalJSON emits durations as fractional seconds, matching the batch
// artifact consumed by downstream tooling.
func (s BatchStats) MarshalJSON() ([]byte, error) {
	counts := s.ClassCounts
	if counts == nil {
		counts = map[string]int{}
	}
	type wire struct {
		TotalImages     int            `json:"total_images"`
		Successful      int            `json:"successful"`
		Failed          int            `json:"failed"`
		TotalDetections int            `json:"total_detections"`
		TotalTime       float64        `json:"total_time_seconds"`
		AvgInference    float64        `json:"avg_inference_time"`
		ImagesPerSecond float64        `json:"images_per_second"`
		ClassCounts     map[string]int `json:"class_counts"`
	}
	return json.Marshal(wire{
		TotalImages:     s.TotalImages,
		Successful:      s.Successful,
		Failed:          s.Failed,
		TotalDetections: s.TotalDetections,
		TotalTime:       s.TotalTime.Seconds(),
		AvgInference:    s.AvgInference.Seconds(),
		ImagesPerSecond: s.ImagesPerSecond,
		ClassCounts:     counts,
	})
}

// BatchReport is the final product of a batch run: statistics plus every
// task outcome ordered by index. Built once after all outcomes are
// collected, never partial.
type BatchReport struct {
	RunID      string        `json:"run_id"`
	Statistics BatchStats    `json:"statistics"`
	Results    []TaskOutcome `json:"results"`
}
