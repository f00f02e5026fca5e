// Package cache 提供检测结果的多级缓存。
//
// 以图像内容的 SHA-256 摘要为键，缓存推理服务返回的检测结果，
// 支持本地 LRU 与 Redis 两级。缓存故障只降级，不影响推理流程。
package cache
