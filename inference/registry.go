package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/lokingai/internal/ctxkeys"
	"github.com/BaSui01/lokingai/types"
)

const instrumentationName = "github.com/BaSui01/lokingai/inference"

type pipelineKey struct {
	task  Task
	model string
}

func (k pipelineKey) String() string { return string(k.task) + "|" + k.model }

// defaultLoadTimeout 单次 Load 的上限，Load 与调用方的取消解耦
const defaultLoadTimeout = 2 * time.Minute

// Registry lazily creates one Pipeline per (task, model) and reuses it for
// every later call. Concurrent first calls share a single Load, which runs
// detached from any one caller's cancellation and is bounded by loadTimeout.
type Registry struct {
	backend     Backend
	models      ModelSet
	observers   []Observer
	tracer      trace.Tracer
	logger      *zap.Logger
	loadTimeout time.Duration

	mu        sync.RWMutex
	pipelines map[pipelineKey]Pipeline
	loads     singleflight.Group
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObserver reports every call to o. It may be given more than once.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithLoadTimeout bounds each shared Load. Non-positive values keep the default.
func WithLoadTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.loadTimeout = d
		}
	}
}

// NewRegistry creates a Registry over backend. models is copied.
func NewRegistry(backend Backend, models ModelSet, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	copied := make(ModelSet, len(models))
	for k, v := range models {
		copied[k] = v
	}
	r := &Registry{
		backend:     backend,
		models:      copied,
		tracer:      otel.Tracer(instrumentationName),
		logger:      logger.With(zap.String("component", "inference_registry"), zap.String("backend", backend.Name())),
		loadTimeout: defaultLoadTimeout,
		pipelines:   make(map[pipelineKey]Pipeline),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pipeline returns the handle for task, loading it on first use.
func (r *Registry) Pipeline(ctx context.Context, task Task) (Pipeline, error) {
	model, err := r.models.Model(task)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, err.Error()).WithHTTPStatus(http.StatusInternalServerError)
	}
	key := pipelineKey{task: task, model: model}

	r.mu.RLock()
	p, ok := r.pipelines[key]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	// 共享的 Load 不继承首个调用方的取消，每个调用方只在自己的 ctx 上等待
	ch := r.loads.DoChan(key.String(), func() (any, error) {
		return r.load(context.WithoutCancel(ctx), key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Pipeline), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) load(ctx context.Context, key pipelineKey) (Pipeline, error) {
	r.mu.RLock()
	existing, ok := r.pipelines[key]
	r.mu.RUnlock()
	if ok {
		return existing, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	start := time.Now()
	loaded, err := r.backend.Load(ctx, key.task, key.model)
	if err != nil {
		r.logger.Warn("pipeline load failed",
			zap.String("task", string(key.task)),
			zap.String("model", key.model),
			zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	r.pipelines[key] = loaded
	r.mu.Unlock()

	for _, o := range r.observers {
		o.RecordPipelineLoad(string(key.task), key.model)
	}
	r.logger.Info("pipeline loaded",
		zap.String("task", string(key.task)),
		zap.String("model", key.model),
		zap.Duration("duration", time.Since(start)))
	return loaded, nil
}

// Run resolves the pipeline for task and calls it once.
func (r *Registry) Run(ctx context.Context, task Task, in Input) (json.RawMessage, error) {
	model, _ := r.models.Model(task)

	ctx, span := r.tracer.Start(ctx, "inference.run",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("inference.backend", r.backend.Name()),
			attribute.String("inference.task", string(task)),
			attribute.String("inference.model", model),
		))
	defer span.End()

	start := time.Now()
	out, err := r.run(ctx, task, in)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = string(types.GetErrorCode(err))
		if status == "" {
			status = string(types.ErrInternalError)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	for _, o := range r.observers {
		o.RecordInference(string(task), model, status, duration)
	}

	if err != nil {
		fields := append(callerFields(ctx),
			zap.String("task", string(task)),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Bool("retryable", types.IsRetryable(err)),
			zap.Error(err))
		r.logger.Error("inference failed", fields...)
		return nil, err
	}
	r.logger.Debug("inference completed",
		zap.String("task", string(task)),
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("output_bytes", len(out)))
	return out, nil
}

// callerFields 从 ctx 中取出请求标识，JWT 认证后包含 subject
func callerFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := ctxkeys.RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if subject, ok := ctxkeys.Subject(ctx); ok {
		fields = append(fields, zap.String("subject", subject))
	}
	return fields
}

func (r *Registry) run(ctx context.Context, task Task, in Input) (json.RawMessage, error) {
	p, err := r.Pipeline(ctx, task)
	if err != nil {
		return nil, err
	}
	out, err := p.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, types.NewUnexpectedOutputError(string(task), fmt.Errorf("empty response"))
	}
	return out, nil
}

// ModelStatus 一个已配置任务的模型及其是否已加载
type ModelStatus struct {
	Task   Task   `json:"task"`
	Model  string `json:"model"`
	Loaded bool   `json:"loaded"`
}

// Status 后端名称与各任务的加载情况
type Status struct {
	Backend string        `json:"backend"`
	Loaded  int           `json:"loaded"`
	Models  []ModelStatus `json:"models"`
}

// Status reports every configured task in AllTasks order and whether its
// pipeline has been loaded yet.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Status{
		Backend: r.backend.Name(),
		Loaded:  len(r.pipelines),
		Models:  make([]ModelStatus, 0, len(r.models)),
	}
	for _, task := range AllTasks() {
		model, ok := r.models[task]
		if !ok || model == "" {
			continue
		}
		_, loaded := r.pipelines[pipelineKey{task: task, model: model}]
		st.Models = append(st.Models, ModelStatus{Task: task, Model: model, Loaded: loaded})
	}
	return st
}

// Ping checks that the backend is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}
