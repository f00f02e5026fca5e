// 版权所有 2026 DetectFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖推理请求、
批处理任务、busy 重试与检测缓存四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 指标清单

  - inference_requests_total{endpoint,status}   — 每次 HTTP 交换一条
  - inference_request_duration_seconds{endpoint} — 请求时延直方图
  - busy_retries_total{endpoint}                — busy 触发的重试次数
  - batch_tasks_total{mode,result}              — 任务终态计数
  - batch_task_duration_seconds{mode}           — 任务端到端时延
  - detections_total{label}                     — 按类别累计检测数
  - tasks_in_flight                             — 当前执行中的任务数
  - cache_hits_total / cache_misses_total{tier} — 检测缓存命中率

本包是 internal 包，不应被外部项目导入。
*/
package metrics
