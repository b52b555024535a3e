package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable failure code placed in the envelope's
// "error" field.
type ErrorCode string

// Request validation codes
const (
	ErrInvalidRequest   ErrorCode = "invalid-request"
	ErrInvalidFileType  ErrorCode = "invalid-file-type"
	ErrFileTooLarge     ErrorCode = "file-too-large"
	ErrEmptyTextField   ErrorCode = "empty-text-field"
	ErrNoFileSent       ErrorCode = "no-file-sent"
	ErrInvalidImage     ErrorCode = "invalid-image"
	ErrNotFound         ErrorCode = "not-found"
	ErrMethodNotAllowed ErrorCode = "method-not-allowed"
)

// Access codes
const (
	ErrUnauthorized ErrorCode = "unauthorized"
	ErrForbidden    ErrorCode = "forbidden"
	ErrRateLimited  ErrorCode = "rate-limited"
)

// Processing codes
const (
	ErrDocumentDecode     ErrorCode = "document-decode-failure"
	ErrUpstreamError      ErrorCode = "inference-failure"
	ErrUpstreamTimeout    ErrorCode = "upstream-timeout"
	ErrServiceUnavailable ErrorCode = "service-unavailable"
	ErrUnexpectedOutput   ErrorCode = "unexpected-output"
	ErrInternalError      ErrorCode = "internal-error"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Backend    string    `json:"backend,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithBackend records which inference backend produced the error.
func (e *Error) WithBackend(backend string) *Error {
	e.Backend = backend
	return e
}

// AsError unwraps err into a *Error if one is present in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// =============================================================================
// 常用错误构造
// =============================================================================

// NewInvalidFileTypeError 上传文件的 Content-Type 不在白名单内
func NewInvalidFileTypeError() *Error {
	return NewError(ErrInvalidFileType, "invalid file type").WithHTTPStatus(http.StatusBadRequest)
}

// NewFileTooLargeError 上传文件超过大小上限
func NewFileTooLargeError() *Error {
	return NewError(ErrFileTooLarge, "file size above limit").WithHTTPStatus(http.StatusBadRequest)
}

// NewEmptyTextError 文本字段为空
func NewEmptyTextError() *Error {
	return NewError(ErrEmptyTextField, "text field can't be empty").WithHTTPStatus(http.StatusBadRequest)
}

// NewNoFileError 请求中没有上传文件
func NewNoFileError() *Error {
	return NewError(ErrNoFileSent, "no file sent").WithHTTPStatus(http.StatusBadRequest)
}

// NewInvalidRequestError 通用请求格式错误
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewDocumentDecodeError 文档解码失败，对外固定提示
func NewDocumentDecodeError(cause error) *Error {
	return NewError(ErrDocumentDecode, "error while processing document").
		WithCause(cause).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewUnexpectedOutputError 模型输出结构无法映射为结果记录
func NewUnexpectedOutputError(task string, cause error) *Error {
	return NewError(ErrUnexpectedOutput, "unexpected output from "+task+" model").
		WithCause(cause).
		WithHTTPStatus(http.StatusBadGateway)
}

// NewInvalidImageError 图像内容无法解码
func NewInvalidImageError(cause error) *Error {
	return NewError(ErrInvalidImage, "invalid image payload").
		WithCause(cause).
		WithHTTPStatus(http.StatusBadRequest)
}
