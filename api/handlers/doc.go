// Copyright (c) LokingAI Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 LokingAI HTTP API 的请求处理器实现。

# 概述

每个输入模态一个路由（TextHandler、ImageHandler、DocumentHandler、
MediaHandler），各自基于独立的 http.ServeMux，由 cmd/lokingai 按前缀
挂载。所有响应都使用 api.Response 信封，失败时同时设置 4xx/5xx 状态码。

# 核心类型

  - TextHandler      — 分类、情感、摘要、问答、零样本、掩码填充、相似度
  - ImageHandler     — 分类、目标检测、分割（multipart payload 或 b64content）
  - DocumentHandler  — 文档问答，PDF 先栅格化首页
  - MediaHandler     — video / audio 仅返回描述
  - HealthHandler    — 健康检查（/health 报告模型加载状态，/ready 探测推理后端）
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 附加依赖检查接口（如 Redis），失败只降级

# 主要能力

  - 统一响应格式：WriteSuccess / WriteList / WriteError / WriteErrorFrom
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式），上传先校验类型与大小再解码
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx），未知路径与方法同样走信封
  - 多问题 / 多句对按 errgroup 并发调用，结果保持输入顺序
*/
package handlers
