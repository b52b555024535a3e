package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/lokingai/api/handlers"
	"github.com/BaSui01/lokingai/internal/cache"

	"go.uber.org/zap"
)

// responseCacheType 缓存指标中的 cache_type 标签
const responseCacheType = "response"

// responseStore 响应缓存存储，由 *cache.Manager 实现
type responseStore interface {
	GetResponse(ctx context.Context, key string) (*cache.CachedResponse, error)
	SetResponse(ctx context.Context, key string, resp *cache.CachedResponse, ttl time.Duration) error
}

// cacheObserver 缓存命中统计，由 *metrics.Collector 实现
type cacheObserver interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// CachePolicy 决定哪些请求进入响应缓存
type CachePolicy struct {
	TTL       time.Duration
	KeyPrefix string
	// Cacheable 为 nil 时使用 defaultCacheable
	Cacheable func(r *http.Request) bool
}

// defaultCacheable 各模态描述（GET /<modality>/）和文本任务（POST /text/*）可缓存；
// 图片与文档上传不缓存
func defaultCacheable(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet:
		return strings.Count(r.URL.Path, "/") == 2 && strings.HasSuffix(r.URL.Path, "/")
	case http.MethodPost:
		return strings.HasPrefix(r.URL.Path, "/text/")
	default:
		return false
	}
}

// ResponseCache 以 sha256(method, path, query, body) 为键缓存 200 响应。
// store 为 nil 时原样透传；缓存读写失败只记日志，不影响请求。
func ResponseCache(store responseStore, policy CachePolicy, observer cacheObserver, logger *zap.Logger) Middleware {
	cacheable := policy.Cacheable
	if cacheable == nil {
		cacheable = defaultCacheable
	}
	return func(next http.Handler) http.Handler {
		if store == nil || policy.TTL <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cacheable(r) {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil && r.Body != http.NoBody {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, handlers.DefaultMaxJSONBytes+1))
				if err != nil {
					r.Body = readCloser{Reader: bytes.NewReader(body), Closer: r.Body}
					next.ServeHTTP(w, r)
					return
				}
				r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), r.Body), Closer: r.Body}
				if int64(len(body)) > handlers.DefaultMaxJSONBytes {
					// 超限请求交给处理器返回 413，不做缓存
					next.ServeHTTP(w, r)
					return
				}
			}

			key := cache.ResponseKey(policy.KeyPrefix, r.Method, r.URL.Path, r.URL.RawQuery, body)
			ctx := r.Context()

			cached, err := store.GetResponse(ctx, key)
			switch {
			case err == nil:
				if observer != nil {
					observer.RecordCacheHit(responseCacheType)
				}
				writeCached(w, cached)
				return
			case cache.IsCacheMiss(err):
				if observer != nil {
					observer.RecordCacheMiss(responseCacheType)
				}
			default:
				logger.Warn("response cache read failed", zap.String("path", r.URL.Path), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			rec := &recordingWriter{ResponseWriter: handlers.NewResponseWriter(w)}
			rec.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)

			if rec.StatusCode != http.StatusOK {
				return
			}
			resp := &cache.CachedResponse{
				Status:      rec.StatusCode,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
			}
			// 请求结束后仍写入缓存
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := store.SetResponse(storeCtx, key, resp, policy.TTL); err != nil {
				logger.Warn("response cache write failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
		})
	}
}

func writeCached(w http.ResponseWriter, resp *cache.CachedResponse) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// recordingWriter 透传响应的同时保留一份响应体
type recordingWriter struct {
	*handlers.ResponseWriter
	buf bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.buf.Write(b[:n])
	return n, err
}
