// 版权所有 2024 LokingAI Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，支持连接池、健康检查、
JSON 序列化与 HTTP 响应缓存。

# 概述

本包封装 go-redis 客户端，为上层业务提供统一的缓存读写接口。
Manager 负责连接生命周期管理，包括初始化、健康检查与优雅关闭。
支持可选 TLS 加密连接，适用于生产环境安全要求。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端与连接池配置，
    提供 Get/Set/Delete 等基础操作，以及 GetJSON/SetJSON
    便捷序列化方法。
  - Config：缓存配置，包含地址、密码、连接池大小、默认 TTL、
    TLS 开关与健康检查间隔等参数。
  - CachedResponse：缓存的 HTTP 响应（状态码、Content-Type、Body）。

# 主要能力

  - 键值读写：支持字符串与 JSON 两种模式的缓存存取。
  - 响应缓存：ResponseKey 由 method、path、query 与 body 的
    sha256 派生缓存键，GetResponse/SetResponse 读写完整响应。
  - 健康检查：后台定时 Ping 检测，异常时通过 zap 日志告警，
    Close 后自动退出。
  - 错误语义：提供 ErrCacheMiss / ErrClosed 哨兵错误与 IsCacheMiss 判断函数。
*/
package cache
