// 版权所有 2024 LokingAI Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 LokingAI 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 采样器为 ParentBased(TraceIDRatioBased)，上游已采样的请求始终被采样。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
// InferenceObserver 把推理调用与模型加载记录为 OTel 指标，
// 与 Prometheus Collector 一起注册到 inference.Registry。
package telemetry
