// Copyright (c) LokingAI Authors.
// Licensed under the MIT License.

/*
Package main 提供 LokingAI 服务端程序入口。

# 概述

cmd/lokingai 是多模态推理网关的可执行入口，提供 HTTP API 服务、
健康检查和版本查询等子命令。程序从 YAML 配置文件与 LK_* 环境变量
加载配置，使用 zap 结构化日志（可选 lumberjack 滚动文件），
Prometheus 指标与 OpenTelemetry 追踪。

# 核心类型

  - Server       — 组装推理后端、模型注册表、各模态路由与中间件链，管理 API 与 Metrics 双端口
  - Middleware   — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - CachePolicy  — 响应缓存策略（TTL、键前缀、可缓存判定）

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 路由挂载：/text、/image、/document、/video、/audio，以及 /health、/ready、/version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、Metrics、
    RequestLogger、BodyLogger、CORS、RateLimiter（基于 IP）、APIKeyAuth、JWTAuth、ResponseCache
  - 响应缓存：描述接口与文本任务的 200 响应写入 Redis，X-Cache 标记 HIT/MISS
  - 优雅关闭：信号监听 → 停止限流清理 → 关闭 HTTP → 关闭 Metrics → 关闭 Redis
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
