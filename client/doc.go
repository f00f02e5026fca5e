// Copyright (c) DetectFlow Authors.
// Licensed under the MIT License.

/*
# 概述

包 client 是 detectx 推理服务的协议适配器。它把一次逻辑推理请求
翻译成一次 HTTP 交换，并把 JSON 响应解码为强类型检测结果。

# 端点

基础路径 http://{host}/local/detectx：

  - GET  /capabilities     — 模型输入尺寸、类别表、接纳队列深度
  - GET  /health           — 运行状态、队列占用、累计统计
  - POST /inference-jpeg   — body 为 JPEG 字节，Content-Type: image/jpeg
  - POST /inference-tensor — body 为 H×W×3 uint8 原始张量，octet-stream

推理端点按状态码驱动：200 解码 detections 数组；204 返回空序列
（不是错误）；503 映射为可重试的 SERVICE_BUSY；其余非 2xx 视为
致命 SERVICE_ERROR。busy 判定只看状态码，不做错误文本匹配。

# 会话与认证

一个 Client 拥有一个共享 http.Client（连接池按并发工作者数量
调优），每次批处理运行打开一次，结束时 Close 释放。配置了
用户名/密码时通过 HTTP Digest 质询-响应携带凭据，否则匿名。

# 本地校验

张量在发送前校验通道数与样本宽度，违规直接返回 INVALID_INPUT，
不发起网络调用；JPEG 载荷超过服务端 10MB 上限同样本地拒绝。
非 JPEG 源图经 LoadJPEG 透明转码为 JPEG（质量 95），带 alpha
或调色板通道的图像先展平为不透明 RGB。
*/
package client
