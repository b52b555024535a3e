package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/lokingai/api"
	"github.com/BaSui01/lokingai/types"
	"go.uber.org/zap"
)

// DefaultMaxJSONBytes JSON 请求体上限
const DefaultMaxJSONBytes int64 = 1 << 20

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 响应头已发出，编码失败时无法再改写状态码
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应 {"error":null,"data":...}
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, api.NewResponse(data))
}

// WriteList 写入列表响应，nil 切片输出为 []
func WriteList[T any](w http.ResponseWriter, items []T) {
	WriteJSON(w, http.StatusOK, api.NewListResponse(items))
}

// WriteError 写入错误响应（从 types.Error）
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := err.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(err.Code)
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Bool("retryable", err.Retryable),
		}
		if err.Backend != "" {
			fields = append(fields, zap.String("backend", err.Backend))
		}
		if err.Cause != nil {
			fields = append(fields, zap.Error(err.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", fields...)
		} else {
			logger.Info("API error", fields...)
		}
	}

	WriteJSON(w, status, api.NewErrorResponse(string(err.Code), err.Message))
}

// WriteErrorFrom 写入任意错误；非 types.Error 一律视为内部错误，原因只进日志
func WriteErrorFrom(w http.ResponseWriter, err error, logger *zap.Logger) {
	if typed, ok := types.AsError(err); ok {
		WriteError(w, typed, logger)
		return
	}
	WriteError(w, types.NewError(types.ErrInternalError, "internal server error").
		WithCause(err).
		WithHTTPStatus(http.StatusInternalServerError), logger)
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case types.ErrInvalidRequest, types.ErrInvalidFileType, types.ErrFileTooLarge,
		types.ErrEmptyTextField, types.ErrNoFileSent, types.ErrInvalidImage:
		return http.StatusBadRequest
	case types.ErrUnauthorized:
		return http.StatusUnauthorized
	case types.ErrForbidden:
		return http.StatusForbidden
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case types.ErrRateLimited:
		return http.StatusTooManyRequests

	// 5xx 服务端错误
	case types.ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case types.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrUpstreamError, types.ErrUnexpectedOutput:
		return http.StatusBadGateway
	case types.ErrDocumentDecode, types.ErrInternalError:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求解码
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体（1 MB 上限，拒绝未知字段）。
// 失败时已写入错误响应，调用方直接 return。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	return DecodeJSONBodyLimit(w, r, dst, DefaultMaxJSONBytes, logger)
}

// DecodeJSONBodyLimit 同 DecodeJSONBody，上限由调用方指定
func DecodeJSONBodyLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64, logger *zap.Logger) error {
	if err := decodeJSON(w, r, dst, limit); err != nil {
		WriteError(w, err, logger)
		return err
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) *types.Error {
	if r.Body == nil || r.Body == http.NoBody {
		return types.NewInvalidRequestError("request body is empty")
	}

	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields() // 严格模式：拒绝未知字段

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return types.NewInvalidRequestError("request body too large").
				WithCause(err).
				WithHTTPStatus(http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return types.NewInvalidRequestError("request body is empty")
		default:
			return types.NewInvalidRequestError("invalid JSON body").WithCause(err)
		}
	}

	if decoder.More() {
		return types.NewInvalidRequestError("invalid JSON body: trailing data")
	}
	return nil
}

// IsJSONRequest 请求是否声明了 JSON 请求体
func IsJSONRequest(r *http.Request) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	return strings.HasPrefix(ct, "application/json")
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码与写入字节数
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode   int
	Written      bool
	BytesWritten int64
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.BytesWritten += int64(n)
	return n, err
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
