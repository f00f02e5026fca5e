// Copyright (c) DetectFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 DetectFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext，自动注册 Cleanup 防止泄漏
  - 图像构造: NewGradientImage / WriteJPEG / WritePNG，
    在临时目录生成真实可解码的测试图片

# 子包

  - testutil/detectxtest: detectx 推理服务的内存替身，
    支持预设检测结果、状态码脚本与请求记录，
    用于客户端与批处理层的端到端测试

# 使用示例

	ctx := testutil.TestContext(t)
	srv := detectxtest.New().WithDetections(detectxtest.Detection("person", 0.92))
	defer srv.Close()
*/
package testutil
