package batch

import (
	"sort"
	"time"

	"github.com/BaSui01/detectflow/types"
)

// ===== 📊 结果聚合 =====

// BuildReport 将任务结果聚合为批处理报告。
// 纯函数：只依赖结果列表和实测墙钟时间。
// 平均推理耗时只统计成功任务，没有成功任务时为 0；
// 吞吐量按全部任务数除以总耗时计算。
func BuildReport(runID string, outcomes []types.TaskOutcome, elapsed time.Duration) *types.BatchReport {
	stats := types.BatchStats{
		TotalImages: len(outcomes),
		TotalTime:   elapsed,
		ClassCounts: map[string]int{},
	}

	var inferTotal time.Duration
	for _, o := range outcomes {
		if !o.Success {
			stats.Failed++
			continue
		}
		stats.Successful++
		stats.TotalDetections += len(o.Detections)
		inferTotal += o.Elapsed
		for _, det := range o.Detections {
			stats.ClassCounts[det.Label]++
		}
	}

	if stats.Successful > 0 {
		stats.AvgInference = inferTotal / time.Duration(stats.Successful)
	}
	if elapsed > 0 {
		stats.ImagesPerSecond = float64(len(outcomes)) / elapsed.Seconds()
	}

	return &types.BatchReport{
		RunID:      runID,
		Statistics: stats,
		Results:    outcomes,
	}
}

// FailureSample 返回报告中前 n 条失败记录，用于摘要输出。
// n <= 0 返回空切片。
func FailureSample(report *types.BatchReport, n int) []types.TaskOutcome {
	if n <= 0 {
		return nil
	}
	var failures []types.TaskOutcome
	for _, o := range report.Results {
		if o.Success {
			continue
		}
		failures = append(failures, o)
		if len(failures) == n {
			break
		}
	}
	return failures
}

// ClassCount 单个类别的检测计数
type ClassCount struct {
	Label string
	Count int
}

// TopClasses 按计数降序返回类别直方图，计数相同时按名称升序，
// 保证输出顺序稳定。
func TopClasses(report *types.BatchReport) []ClassCount {
	counts := make([]ClassCount, 0, len(report.Statistics.ClassCounts))
	for label, count := range report.Statistics.ClassCounts {
		counts = append(counts, ClassCount{Label: label, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	return counts
}
