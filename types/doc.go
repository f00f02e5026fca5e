// Copyright (c) DetectFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 DetectFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 client、batch、retry、
cache 等上层模块提供统一的类型契约。跨包共享的数据模型、线上协议
结构和错误码均定义于此，以避免循环依赖。

# 数据模型

  - Detection           — 服务返回的单个检测结果（标签、置信度、双格式边界框）
  - ImageTask           — 批处理的单个任务（索引 + 源文件路径）
  - TaskOutcome         — 单任务终态（成功/失败、检测列表、尝试次数、耗时）
  - BatchReport / BatchStats — 批处理汇总报告与统计
  - ServiceCapabilities — /capabilities 快照（模型输入尺寸、类别表、队列深度）
  - ServiceHealth       — /health 快照（运行状态、队列、累计统计）

# 错误体系

Error / ErrorCode 构成结构化错误体系，携带 HTTP 状态码、Retryable 标记
与出错端点。SERVICE_BUSY 是唯一可自动重试的错误类别；IsBusy 同时覆盖
传输层错误中按消息内容识别的 busy 信号。

# 不变式

  - Detection 解码时校验所有必需字段，缺失即返回 DECODE_ERROR
  - TaskOutcome 与 ImageTask 一一对应，写入一次后不再变更
  - BatchReport.Results 恒按 Index 升序排列
*/
package types
