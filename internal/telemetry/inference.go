package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/BaSui01/lokingai/inference"

// InferenceObserver 以 OTel 指标记录推理调用与模型加载，随 OTLP 导出。
// 实现 inference.Observer，可与 Prometheus Collector 同时注册。
type InferenceObserver struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	loads    metric.Int64Counter
}

// NewInferenceObserver 在 mp 上创建推理指标；未启用遥测时传入全局 noop Provider 即可
func NewInferenceObserver(mp metric.MeterProvider) (*InferenceObserver, error) {
	meter := mp.Meter(meterName)

	calls, err := meter.Int64Counter("lokingai.inference.calls",
		metric.WithDescription("Model inference calls by task, model and status"))
	if err != nil {
		return nil, fmt.Errorf("create inference calls counter: %w", err)
	}
	duration, err := meter.Float64Histogram("lokingai.inference.duration",
		metric.WithDescription("Model inference duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create inference duration histogram: %w", err)
	}
	loads, err := meter.Int64Counter("lokingai.inference.pipeline_loads",
		metric.WithDescription("Pipelines created by the model registry"))
	if err != nil {
		return nil, fmt.Errorf("create pipeline loads counter: %w", err)
	}
	return &InferenceObserver{calls: calls, duration: duration, loads: loads}, nil
}

func (o *InferenceObserver) RecordInference(task, model, status string, d time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("model", model),
		attribute.String("status", status),
	)
	o.calls.Add(ctx, 1, attrs)
	o.duration.Record(ctx, d.Seconds(), attrs)
}

func (o *InferenceObserver) RecordPipelineLoad(task, model string) {
	o.loads.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("model", model),
	))
}
