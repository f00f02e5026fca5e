package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskOutcome_MarshalSuccess(t *testing.T) {
	t.Parallel()

	o := TaskOutcome{
		Index:      2,
		SourceName: "frame_0002.jpg",
		Success:    true,
		Detections: nil, // zero detections is still a success
		Attempts:   1,
		Elapsed:    1500 * time.Millisecond,
	}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"detections":[]`) {
		t.Fatalf("success outcome must keep an empty detections list: %s", s)
	}
	if strings.Contains(s, `"error"`) {
		t.Fatalf("success outcome must not carry error text: %s", s)
	}
	if !strings.Contains(s, `"inference_time":1.5`) {
		t.Fatalf("elapsed must serialize as seconds: %s", s)
	}
	if !strings.Contains(s, `"image":"frame_0002.jpg"`) {
		t.Fatalf("source name serializes under image: %s", s)
	}
}

func TestTaskOutcome_MarshalFailure(t *testing.T) {
	t.Parallel()

	o := TaskOutcome{
		Index:      0,
		SourceName: "broken.jpg",
		Success:    false,
		Error:      "Max retries exceeded",
		Attempts:   4,
		Elapsed:    3 * time.Second,
	}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if strings.Contains(s, `"detections"`) {
		t.Fatalf("failed outcome must omit detections: %s", s)
	}
	if !strings.Contains(s, `"error":"Max retries exceeded"`) {
		t.Fatalf("failed outcome must carry error text: %s", s)
	}
	if !strings.Contains(s, `"attempts":4`) {
		t.Fatalf("attempts must always be recorded: %s", s)
	}
}

func TestBatchStats_MarshalSeconds(t *testing.T) {
	t.Parallel()

	s := BatchStats{
		TotalImages:     10,
		Successful:      9,
		Failed:          1,
		TotalDetections: 27,
		TotalTime:       20 * time.Second,
		AvgInference:    500 * time.Millisecond,
		ImagesPerSecond: 0.5,
		ClassCounts:     nil,
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"total_time_seconds":20`) {
		t.Fatalf("total time must serialize as seconds: %s", out)
	}
	if !strings.Contains(out, `"avg_inference_time":0.5`) {
		t.Fatalf("avg inference must serialize as seconds: %s", out)
	}
	if !strings.Contains(out, `"class_counts":{}`) {
		t.Fatalf("class counts must never be null: %s", out)
	}
}
