package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/lokingai/api"
	"github.com/BaSui01/lokingai/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🧭 模态路由公共部分
// =============================================================================

// UploadObserver 接收上传校验拒绝事件（metrics.Collector 实现）
type UploadObserver interface {
	RecordUploadRejected(modality, reason string)
}

// router 每个模态一个 ServeMux，错误也走统一信封
type router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func newRouter(app string, logger *zap.Logger) *router {
	rt := &router{mux: http.NewServeMux(), logger: logger}
	descriptor := api.Descriptor{App: app}
	rt.handle(http.MethodGet, "/{$}", func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, descriptor)
	})
	rt.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "not found", nil)
	})
	return rt
}

// handle 注册 "METHOD path"，同一路径的其他方法返回 405 信封
func (rt *router) handle(method, path string, h http.HandlerFunc) {
	rt.mux.HandleFunc(method+" "+path, h)
	rt.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", method)
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrMethodNotAllowed, "method not allowed", nil)
	})
}

func (rt *router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// fanOut 对 n 个单元并发调用 fn，最多 limit 个同时进行。
// 结果顺序与输入一致；任一失败即取消其余调用并返回第一个错误。
func fanOut[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			out, err := fn(gctx, i)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// splitQuestions 拆分逗号拼接的问题列表，去除空白与空项
func splitQuestions(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
