// Package batch 实现批量推理的编排层。
//
// 扫描目录生成任务列表，由固定大小的工作池从共享通道领取任务并发执行。
// 每个任务依次经过限流、缓存查询、图像编码、推理调用（busy 自动重试）
// 和置信度过滤，全部任务结束后聚合为一份带统计信息的报告。
//
// 取消只阻止尚未开始的任务，已发出的请求会等待收尾，
// 因此结果数量恒等于任务数量。
package batch
