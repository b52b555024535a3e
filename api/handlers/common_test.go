package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/testutil"
	"github.com/BaSui01/lokingai/types"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"message":"hello"}`, w.Body.String())
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"error":null,"data":{"key":"value"}}`, w.Body.String())
}

func TestWriteList_NilIsEmptyArray(t *testing.T) {
	w := httptest.NewRecorder()
	WriteList[string](w, nil)

	assert.JSONEq(t, `{"error":null,"data":[]}`, w.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            *types.Error
		expectedStatus int
	}{
		{"invalid file type", types.NewInvalidFileTypeError(), http.StatusBadRequest},
		{"no file sent", types.NewNoFileError(), http.StatusBadRequest},
		{"status from code", types.NewError(types.ErrRateLimited, "too many requests"), http.StatusTooManyRequests},
		{"upstream timeout", types.NewError(types.ErrUpstreamTimeout, "timeout"), http.StatusGatewayTimeout},
		{"document decode", types.NewDocumentDecodeError(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err, zap.NewNop())

			env := testutil.AssertEnvelopeError(t, w, tt.expectedStatus, string(tt.err.Code))
			assert.Equal(t, tt.err.Message, env.Detail)
		})
	}
}

func TestWriteErrorFrom_HidesUntypedCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorFrom(w, errors.New("dial tcp 10.0.0.1:443: secret detail"), zap.NewNop())

	env := testutil.AssertEnvelopeError(t, w, http.StatusInternalServerError, string(types.ErrInternalError))
	assert.Equal(t, "internal server error", env.Detail)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestWriteErrorFrom_UnwrapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	wrapped := errors.Join(context.Canceled, types.NewEmptyTextError())
	WriteErrorFrom(w, wrapped, zap.NewNop())

	testutil.AssertEnvelopeError(t, w, http.StatusBadRequest, string(types.ErrEmptyTextField))
}

func TestDecodeJSONBody(t *testing.T) {
	type TestStruct struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantDetail string
	}{
		{name: "valid JSON", body: `{"name":"test","value":123}`},
		{name: "invalid JSON", body: `{"name":"test",}`, wantErr: true, wantDetail: "invalid JSON body"},
		{name: "unknown field", body: `{"name":"test","unknown":"field"}`, wantErr: true, wantDetail: "invalid JSON body"},
		{name: "empty body", body: ``, wantErr: true, wantDetail: "request body is empty"},
		{name: "trailing data", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := testutil.JSONRequest(http.MethodPost, "/test", tt.body)

			var result TestStruct
			err := DecodeJSONBody(w, r, &result, zap.NewNop())

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "test", result.Name)
				assert.Equal(t, 123, result.Value)
				return
			}
			require.Error(t, err)
			env := testutil.AssertEnvelopeError(t, w, http.StatusBadRequest, string(types.ErrInvalidRequest))
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, env.Detail)
			}
		})
	}
}

func TestDecodeJSONBody_MaxBodySize(t *testing.T) {
	oversized := `{"name":"` + strings.Repeat("x", 2<<20) + `"}`

	w := httptest.NewRecorder()
	r := testutil.JSONRequest(http.MethodPost, "/test", oversized)

	var result struct {
		Name string `json:"name"`
	}
	err := DecodeJSONBody(w, r, &result, zap.NewNop())

	require.Error(t, err, "body exceeding 1 MB should be rejected")
	testutil.AssertEnvelopeError(t, w, http.StatusRequestEntityTooLarge, string(types.ErrInvalidRequest))
}

func TestIsJSONRequest(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=UTF-8", true},
		{"Application/JSON", true},
		{"multipart/form-data; boundary=x", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.Header.Set("Content-Type", tt.contentType)
			assert.Equal(t, tt.want, IsJSONRequest(r))
		})
	}
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	assert.Equal(t, http.StatusOK, rw.StatusCode)
	assert.False(t, rw.Written)

	rw.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, rw.StatusCode)
	assert.True(t, rw.Written)

	// 再次写入应该被忽略
	rw.WriteHeader(http.StatusBadRequest)
	assert.Equal(t, http.StatusCreated, rw.StatusCode)

	n, err := rw.Write([]byte("test"))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), rw.BytesWritten)
	assert.Same(t, w, rw.Unwrap())
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code       types.ErrorCode
		wantStatus int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrInvalidFileType, http.StatusBadRequest},
		{types.ErrFileTooLarge, http.StatusBadRequest},
		{types.ErrEmptyTextField, http.StatusBadRequest},
		{types.ErrNoFileSent, http.StatusBadRequest},
		{types.ErrInvalidImage, http.StatusBadRequest},
		{types.ErrUnauthorized, http.StatusUnauthorized},
		{types.ErrForbidden, http.StatusForbidden},
		{types.ErrNotFound, http.StatusNotFound},
		{types.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrUpstreamTimeout, http.StatusGatewayTimeout},
		{types.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{types.ErrUpstreamError, http.StatusBadGateway},
		{types.ErrUnexpectedOutput, http.StatusBadGateway},
		{types.ErrDocumentDecode, http.StatusInternalServerError},
		{types.ErrInternalError, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError}, // 默认
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, mapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestSplitQuestions(t *testing.T) {
	assert.Equal(t, []string{"What is the total?", "Who signed?"},
		splitQuestions(" What is the total? ,, Who signed? ,"))
	assert.Empty(t, splitQuestions(" , "))
}

func TestFanOut_PreservesOrder(t *testing.T) {
	got, err := fanOut(context.Background(), 5, 2, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 9, 16}, got)
}

func TestFanOut_FirstErrorWins(t *testing.T) {
	boom := types.NewError(types.ErrUpstreamError, "boom")
	_, err := fanOut(context.Background(), 3, 1, func(_ context.Context, i int) (int, error) {
		if i == 1 {
			return 0, boom
		}
		return i, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFanOut_Empty(t *testing.T) {
	got, err := fanOut(context.Background(), 0, 4, func(context.Context, int) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}
