package types

// ServiceCapabilities is the read-only snapshot returned by /capabilities.
// Fetched on demand and never cached beyond a single call.
type ServiceCapabilities struct {
	Model   ModelInfo `json:"model"`
	Server  string    `json:"server"`
	Version string    `json:"version"`
}

// ModelInfo describes the deployed model: expected input geometry, the
// class table, and the admission queue depth the batch scheduler should
// respect.
type ModelInfo struct {
	InputWidth   int           `json:"input_width"`
	InputHeight  int           `json:"input_height"`
	Channels     int           `json:"channels"`
	AspectRatio  string        `json:"aspect_ratio"`
	InputFormats []InputFormat `json:"input_formats"`
	Classes      []ClassInfo   `json:"classes"`
	MaxQueueSize int           `json:"max_queue_size"`
}

// InputFormat documents one ingestion endpoint variant.
type InputFormat struct {
	Endpoint         string  `json:"endpoint"`
	Method           string  `json:"method"`
	ContentType      string  `json:"content_type"`
	Description      string  `json:"description"`
	Preprocessing    string  `json:"preprocessing,omitempty"`
	Format           string  `json:"format,omitempty"`
	SizeRequirement  string  `json:"size_requirement,omitempty"`
	StrictDimensions bool    `json:"strict_dimensions,omitempty"`
	MaxSizeMB        float64 `json:"max_size_mb,omitempty"`
}

// ClassInfo is one entry of the model's class table.
type ClassInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ServiceHealth is the read-only snapshot returned by /health.
type ServiceHealth struct {
	Running    bool             `json:"running"`
	QueueSize  int              `json:"queue_size"`
	QueueFull  bool             `json:"queue_full"`
	Statistics HealthStatistics `json:"statistics"`
	Timing     HealthTiming     `json:"timing"`
}

// HealthStatistics holds the service's cumulative request counters.
type HealthStatistics struct {
	TotalRequests int64 `json:"total_requests"`
	Successful    int64 `json:"successful"`
	Failed        int64 `json:"failed"`
	Busy          int64 `json:"busy"`
}

// HealthTiming holds the service's inference latency aggregates in
// milliseconds.
type HealthTiming struct {
	AverageMS float64 `json:"average_ms"`
	MinMS     float64 `json:"min_ms"`
	MaxMS     float64 `json:"max_ms"`
}
