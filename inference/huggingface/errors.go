package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/BaSui01/lokingai/types"
)

const backendName = "huggingface"

// mapHTTPError 将上游 HTTP 状态码映射为带有合适重试标记的 types.Error
func mapHTTPError(status int, msg string) *types.Error {
	switch status {
	case http.StatusUnauthorized:
		// 网关自身的凭据问题，对调用方表现为上游故障
		return types.NewError(types.ErrUnauthorized, msg).
			WithHTTPStatus(http.StatusBadGateway).
			WithBackend(backendName)
	case http.StatusForbidden:
		return types.NewError(types.ErrForbidden, msg).
			WithHTTPStatus(http.StatusBadGateway).
			WithBackend(backendName)
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(http.StatusTooManyRequests).
			WithRetryable(true).
			WithBackend(backendName)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return types.NewError(types.ErrInvalidRequest, msg).
			WithHTTPStatus(http.StatusBadRequest).
			WithBackend(backendName)
	case http.StatusServiceUnavailable:
		// 模型冷启动加载中
		return types.NewError(types.ErrServiceUnavailable, msg).
			WithHTTPStatus(http.StatusServiceUnavailable).
			WithRetryable(true).
			WithBackend(backendName)
	case http.StatusGatewayTimeout:
		return types.NewError(types.ErrUpstreamTimeout, msg).
			WithHTTPStatus(http.StatusGatewayTimeout).
			WithRetryable(true).
			WithBackend(backendName)
	default:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(status >= 500).
			WithBackend(backendName)
	}
}

// mapTransportError 将 client.Do 的错误映射为 types.Error
func mapTransportError(err error) *types.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.ErrUpstreamTimeout, "inference request timed out").
			WithCause(err).
			WithHTTPStatus(http.StatusGatewayTimeout).
			WithRetryable(true).
			WithBackend(backendName)
	}
	return types.NewError(types.ErrUpstreamError, "inference request failed").
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithBackend(backendName)
}

// readErrorMessage 读取响应体中的错误消息
// 支持 {"error": "..."} 与 {"error": ["...", ...]} 两种形式，失败则回退到原始文本
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && len(errResp.Error) > 0 {
		var single string
		if json.Unmarshal(errResp.Error, &single) == nil && single != "" {
			return single
		}
		var many []string
		if json.Unmarshal(errResp.Error, &many) == nil && len(many) > 0 {
			return strings.Join(many, "; ")
		}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return http.StatusText(http.StatusBadGateway)
	}
	return msg
}
