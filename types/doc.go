/*
Package types 提供 LokingAI 网关的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 api、inference、upload
等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Backend 标记

# 主要能力

  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 常用错误构造：NewInvalidFileTypeError / NewFileTooLargeError /
    NewEmptyTextError / NewNoFileError / NewDocumentDecodeError
*/
package types
