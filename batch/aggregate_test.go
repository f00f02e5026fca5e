package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/detectflow/testutil/detectxtest"
	"github.com/BaSui01/detectflow/types"
)

func sampleOutcomes() []types.TaskOutcome {
	return []types.TaskOutcome{
		{
			Index:      0,
			SourceName: "a.jpg",
			Success:    true,
			Detections: []types.Detection{
				detectxtest.Detection("person", 0.92),
				detectxtest.Detection("car", 0.81),
			},
			Attempts: 1,
			Elapsed:  100 * time.Millisecond,
		},
		{
			Index:      1,
			SourceName: "b.jpg",
			Success:    true,
			Detections: []types.Detection{
				detectxtest.Detection("person", 0.77),
			},
			Attempts: 3,
			Elapsed:  200 * time.Millisecond,
		},
		{
			Index:      2,
			SourceName: "c.jpg",
			Success:    false,
			Error:      "max retries exceeded",
			Attempts:   4,
			Elapsed:    2 * time.Second,
		},
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	report := BuildReport("run-1", sampleOutcomes(), time.Second)

	assert.Equal(t, "run-1", report.RunID)

	stats := report.Statistics
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.TotalDetections)
	assert.Equal(t, time.Second, stats.TotalTime)

	// 平均推理耗时只统计成功任务：(100ms + 200ms) / 2
	assert.Equal(t, 150*time.Millisecond, stats.AvgInference)

	// 吞吐量按全部任务算：3 张 / 1 秒
	assert.InDelta(t, 3.0, stats.ImagesPerSecond, 1e-9)

	assert.Equal(t, map[string]int{"person": 2, "car": 1}, stats.ClassCounts)
	assert.Len(t, report.Results, 3)
}

func TestBuildReport_NoSuccesses(t *testing.T) {
	t.Parallel()

	outcomes := []types.TaskOutcome{
		{Index: 0, SourceName: "a.jpg", Success: false, Error: "boom", Attempts: 1},
	}
	report := BuildReport("run-2", outcomes, 500*time.Millisecond)

	assert.Equal(t, 0, report.Statistics.Successful)
	assert.Equal(t, 1, report.Statistics.Failed)
	assert.Equal(t, time.Duration(0), report.Statistics.AvgInference)
	assert.Equal(t, 0, report.Statistics.TotalDetections)
	assert.Empty(t, report.Statistics.ClassCounts)
}

func TestBuildReport_EmptyOutcomes(t *testing.T) {
	t.Parallel()

	report := BuildReport("run-3", nil, 0)
	assert.Equal(t, 0, report.Statistics.TotalImages)
	assert.Equal(t, time.Duration(0), report.Statistics.AvgInference)
	assert.InDelta(t, 0.0, report.Statistics.ImagesPerSecond, 1e-9)
}

func TestFailureSample(t *testing.T) {
	t.Parallel()

	outcomes := []types.TaskOutcome{
		{Index: 0, Success: true},
		{Index: 1, Success: false, Error: "first"},
		{Index: 2, Success: false, Error: "second"},
		{Index: 3, Success: false, Error: "third"},
	}
	report := BuildReport("run-4", outcomes, time.Second)

	sample := FailureSample(report, 2)
	require.Len(t, sample, 2)
	assert.Equal(t, "first", sample[0].Error)
	assert.Equal(t, "second", sample[1].Error)

	// 失败数不足 n 时全部返回
	assert.Len(t, FailureSample(report, 10), 3)
	assert.Nil(t, FailureSample(report, 0))
}

func TestTopClasses(t *testing.T) {
	t.Parallel()

	report := &types.BatchReport{
		Statistics: types.BatchStats{
			ClassCounts: map[string]int{
				"car":     2,
				"person":  5,
				"bicycle": 2,
				"dog":     1,
			},
		},
	}

	top := TopClasses(report)
	require.Len(t, top, 4)

	// 计数降序，计数相同按名称升序
	assert.Equal(t, ClassCount{Label: "person", Count: 5}, top[0])
	assert.Equal(t, ClassCount{Label: "bicycle", Count: 2}, top[1])
	assert.Equal(t, ClassCount{Label: "car", Count: 2}, top[2])
	assert.Equal(t, ClassCount{Label: "dog", Count: 1}, top[3])
}
