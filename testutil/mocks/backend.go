// FakeBackend 推理后端的测试模拟实现。
//
// 按任务配置固定输出、错误注入与调用记录。
package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BaSui01/lokingai/inference"
)

// --- FakeBackend 结构 ---

// FakeBackend 是 inference.Backend 的模拟实现
type FakeBackend struct {
	mu sync.RWMutex

	outputs  map[inference.Task]json.RawMessage
	handlers map[inference.Task]func(in inference.Input) (json.RawMessage, error)
	errs     map[inference.Task]error
	loadErr  error
	loadHook func(ctx context.Context) error
	pingErr  error

	loads []string
	calls []FakeCall
}

// FakeCall 记录单次推理调用
type FakeCall struct {
	Task  inference.Task
	Model string
	Input inference.Input
}

// NewFakeBackend 创建新的 FakeBackend
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		outputs:  make(map[inference.Task]json.RawMessage),
		handlers: make(map[inference.Task]func(inference.Input) (json.RawMessage, error)),
		errs:     make(map[inference.Task]error),
	}
}

// --- Builder 方法 ---

// WithOutput 设置任务的固定输出 JSON
func (b *FakeBackend) WithOutput(task inference.Task, output string) *FakeBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[task] = json.RawMessage(output)
	return b
}

// WithHandler 设置按输入计算输出的函数
func (b *FakeBackend) WithHandler(task inference.Task, fn func(in inference.Input) (json.RawMessage, error)) *FakeBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[task] = fn
	return b
}

// WithError 设置任务调用时返回的错误
func (b *FakeBackend) WithError(task inference.Task, err error) *FakeBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[task] = err
	return b
}

// WithLoadError 设置 Load 返回的错误
func (b *FakeBackend) WithLoadError(err error) *FakeBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadErr = err
	return b
}

// WithLoadHook 设置 Load 开始时调用的函数，可用于阻塞或观察 Load 的 ctx
func (b *FakeBackend) WithLoadHook(fn func(ctx context.Context) error) *FakeBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadHook = fn
	return b
}

// WithPingError 设置 Ping 返回的错误
func (b *FakeBackend) WithPingError(err error) *FakeBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pingErr = err
	return b
}

// --- inference.Backend 实现 ---

// Name 返回后端名称
func (b *FakeBackend) Name() string { return "fake" }

// Load 创建 fake pipeline
func (b *FakeBackend) Load(ctx context.Context, task inference.Task, model string) (inference.Pipeline, error) {
	b.mu.RLock()
	hook := b.loadHook
	b.mu.RUnlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	b.loads = append(b.loads, string(task)+"|"+model)
	return &fakePipeline{backend: b, task: task, model: model}, nil
}

// Ping 健康探测
func (b *FakeBackend) Ping(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pingErr
}

// --- 调用记录 ---

// Calls 返回全部调用记录
func (b *FakeBackend) Calls() []FakeCall {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]FakeCall, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsFor 返回指定任务的调用记录
func (b *FakeBackend) CallsFor(task inference.Task) []FakeCall {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []FakeCall
	for _, c := range b.calls {
		if c.Task == task {
			out = append(out, c)
		}
	}
	return out
}

// LoadCount 返回 Load 被调用的次数
func (b *FakeBackend) LoadCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.loads)
}

type fakePipeline struct {
	backend *FakeBackend
	task    inference.Task
	model   string
}

func (p *fakePipeline) Task() inference.Task { return p.task }
func (p *fakePipeline) Model() string        { return p.model }

func (p *fakePipeline) Run(ctx context.Context, in inference.Input) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := p.backend
	b.mu.Lock()
	b.calls = append(b.calls, FakeCall{Task: p.task, Model: p.model, Input: in})
	err := b.errs[p.task]
	handler := b.handlers[p.task]
	output, ok := b.outputs[p.task]
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if handler != nil {
		return handler(in)
	}
	if !ok {
		return nil, fmt.Errorf("fake backend: no output configured for task %q", p.task)
	}
	return output, nil
}
