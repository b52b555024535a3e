package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// CachedResponse 缓存的 HTTP 响应
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseKey 根据请求要素计算缓存键：
// prefix + hex(sha256(method, path, query, body))[:32]
func ResponseKey(prefix, method, path, rawQuery string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(method), []byte(path), []byte(rawQuery)} {
		h.Write(part)
		h.Write([]byte{0})
	}
	h.Write(body)
	sum := h.Sum(nil)
	return prefix + hex.EncodeToString(sum[:16])
}

// GetResponse 读取缓存的响应，未命中返回 ErrCacheMiss
func (m *Manager) GetResponse(ctx context.Context, key string) (*CachedResponse, error) {
	var resp CachedResponse
	if err := m.GetJSON(ctx, key, &resp); err != nil {
		return nil, err
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	return &resp, nil
}

// SetResponse 写入响应缓存
func (m *Manager) SetResponse(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	return m.SetJSON(ctx, key, resp, ttl)
}
