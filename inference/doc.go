// 版权所有 2024 LokingAI Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 inference 定义模型推理的调用契约，并把模型原始输出映射为
api 包中的结果记录。

# 概述

每个推理任务（Task）通过 ModelSet 固定对应一个模型 ID。Backend
负责为 (task, model) 创建 Pipeline 句柄，Registry 以懒加载、
单次初始化的方式缓存这些句柄，之后的调用直接复用。

# 核心类型

  - Backend：推理后端，创建 Pipeline 并提供健康探测。
  - Pipeline：不可变的模型句柄，Run 接收 Input 返回原始 JSON。
  - Registry：线程安全的句柄缓存，同时记录指标与链路追踪。
  - TextProcessor / ImageProcessor / DocumentProcessor：
    按模态封装具体任务，输出 api 结果记录。

# 错误处理

后端错误以 types.Error 返回（inference-failure、upstream-timeout、
service-unavailable 等）。模型输出结构无法解析时返回
unexpected-output，并记录原始片段便于排查。
*/
package inference
