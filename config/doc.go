// Package config 提供 LokingAI 的配置管理功能。
//
// 配置在进程启动时由 Loader 一次性构建（默认值 → YAML → LK_* 环境变量），
// 之后以只读指针的形式注入到服务器、路由与校验器中。
// 数值类环境变量格式错误时启动失败，而不是静默回退到默认值。
package config
