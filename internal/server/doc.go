// 版权所有 2024 LokingAI Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程。LokingAI 的 API 服务与 Prometheus 指标服务
各自持有一个 Manager，以 Config.Name 区分日志。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/WaitForShutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小、
    优雅关闭超时，以及可选的 TLS 证书与私钥路径。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务；证书与私钥
    均配置时以 HTTPS 监听，TLS 参数来自 tlsutil.DefaultTLSConfig。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM 与 ctx 结束。
  - 错误传播：Errors() 返回异步错误通道。
  - 地址查询：Addr 在启动后返回实际绑定地址。
*/
package server
