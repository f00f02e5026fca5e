// Copyright (c) DetectFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 DetectFlow 命令行程序入口。

# 概述

cmd/detectflow 是 DetectFlow 的可执行入口，对摄像机端 detectx
推理服务做批量对象检测。程序支持 YAML 配置文件加载、命令行参数
覆盖、结构化日志（zap）、Prometheus 指标采集以及 OTLP 链路追踪。

# 主要能力

  - 子命令：batch（批量推理）、infer（单图推理）、capabilities
    （查询服务能力）、health（健康检查）、version
  - batch：扫描目录 → 启动前探活 → 并发推理 → 汇总报告（JSON）
  - infer：单张图像推理，支持 jpeg、tensor 或 both 对照模式
  - 进度输出：stdout 单行刷新，日志走 stderr 互不干扰
  - Metrics 服务器：-metrics-addr 暴露 /metrics（Prometheus）
  - 退出码：批次跑完即 0（允许部分失败），配置或启动失败为 1，
    中断取消为 1
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
