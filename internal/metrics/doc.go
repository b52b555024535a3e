// 版权所有 2024 LokingAI Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、模型推理、上传校验与响应缓存四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
注册到默认或指定的 Registerer。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 推理指标：调用总数、调用耗时，按 task/model/status 分组；
    pipeline 句柄创建次数。
  - 上传指标：校验失败次数，按 modality/reason 分组。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
*/
package metrics
