package inference

import (
	"context"
	"encoding/json"
	"time"
)

// Input 单次推理输入。Raw 非空时按二进制发送（图像类任务），
// 否则发送 Inputs 与 Parameters 组成的 JSON。
type Input struct {
	Inputs      any            `json:"inputs,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Raw         []byte         `json:"-"`
	ContentType string         `json:"-"`
}

// Pipeline 已加载的模型句柄，创建后不可变，可并发调用
type Pipeline interface {
	Task() Task
	Model() string
	Run(ctx context.Context, in Input) (json.RawMessage, error)
}

// Backend 推理后端
type Backend interface {
	Name() string
	Load(ctx context.Context, task Task, model string) (Pipeline, error)
	Ping(ctx context.Context) error
}

// Observer 接收每次推理调用的结果，metrics.Collector 实现了该接口
type Observer interface {
	RecordInference(task, model, status string, duration time.Duration)
	RecordPipelineLoad(task, model string)
}
