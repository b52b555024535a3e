// 版权所有 2024 LokingAI Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package testutil 提供 LokingAI 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertEnvelopeError / AssertContains 等
  - 异步断言: AssertEventuallyTrue，支持超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON / TestImage / MultipartFile，
    简化请求与图像数据构造

# 子包

  - testutil/mocks: FakeBackend，按任务配置输出与错误的推理后端
*/
package testutil
