package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/inference"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// checkTimeout 单项就绪检查的上限
const checkTimeout = 5 * time.Second

// 状态取值
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// ModelReporter 就绪检查所需的推理状态，inference.Registry 实现了该接口
type ModelReporter interface {
	Ping(ctx context.Context) error
	Status() inference.Status
}

// HealthCheck 附加的依赖检查（如 Redis 响应缓存）。
// 附加检查失败只会让服务降级，推理后端不可达才会判定为不就绪。
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Inference *inference.Status      `json:"inference,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthHandler 存活、就绪与版本端点
type HealthHandler struct {
	logger  *zap.Logger
	version string
	models  ModelReporter

	mu     sync.RWMutex
	checks []HealthCheck
}

// NewHealthHandler 创建健康检查处理器，models 为 nil 时就绪检查只运行附加检查
func NewHealthHandler(version string, models ModelReporter, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:  logger.With(zap.String("component", "health")),
		version: version,
		models:  models,
	}
}

// RegisterCheck 注册附加检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 存活检查，附带后端名称与已加载的模型，不做任何网络调用
// @Summary 健康检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务正常"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
	}
	if h.models != nil {
		st := h.models.Status()
		status.Inference = &st
	}
	WriteJSON(w, http.StatusOK, status)
}

// HandleHealthz Kubernetes 存活探针
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: statusHealthy, Timestamp: time.Now()})
}

// HandleReady 就绪检查：并发探测推理后端与附加依赖。
// 后端失败返回 503 unhealthy；仅附加检查失败返回 200 degraded。
// @Summary 准备情况检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务已就绪或降级"
// @Failure 503 {object} HealthStatus "推理后端不可达"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Checks:    make(map[string]CheckResult, len(checks)+1),
	}

	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		backendDown bool
		degraded    bool
	)
	run := func(name string, critical bool, check func(context.Context) error) {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		start := time.Now()
		err := check(ctx)
		result := CheckResult{Status: "pass", Latency: time.Since(start).String()}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			h.logger.Warn("readiness check failed",
				zap.String("check", name),
				zap.Bool("critical", critical),
				zap.Error(err))
		}

		mu.Lock()
		defer mu.Unlock()
		status.Checks[name] = result
		if err != nil && critical {
			backendDown = true
		} else if err != nil {
			degraded = true
		}
	}

	if h.models != nil {
		st := h.models.Status()
		status.Inference = &st
		wg.Add(1)
		go run("inference", true, h.models.Ping)
	}
	for _, check := range checks {
		wg.Add(1)
		go run(check.Name(), false, check.Check)
	}
	wg.Wait()

	switch {
	case backendDown:
		status.Status = statusUnhealthy
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	case degraded:
		status.Status = statusDegraded
	}
	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion 版本信息
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

// =============================================================================
// 🔧 附加检查
// =============================================================================

// PingCheck 基于 ping 函数的附加检查
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingCheck 例如 NewPingCheck("redis", manager.Ping)
func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }
