package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lokingai/inference"
	"github.com/BaSui01/lokingai/internal/tlsutil"
	"github.com/BaSui01/lokingai/types"
)

// DefaultBaseURL is the hosted Inference API.
const DefaultBaseURL = "https://api-inference.huggingface.co"

const maxResponseBytes = 64 << 20

// Config configures the backend.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	WaitForModel    bool
	Warmup          bool
	MaxConnsPerHost int
}

// Backend talks to the Inference API. It is safe for concurrent use.
type Backend struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Backend.
func New(cfg Config, logger *zap.Logger) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		cfg:    cfg,
		client: tlsutil.ClientFor(cfg.BaseURL, cfg.Timeout, cfg.MaxConnsPerHost),
		logger: logger.With(zap.String("component", "huggingface")),
	}
}

// Name implements inference.Backend.
func (b *Backend) Name() string { return backendName }

// Load returns a pipeline bound to model. With warm-up enabled the model
// status endpoint is probed first so that loading failures surface early.
func (b *Backend) Load(ctx context.Context, task inference.Task, model string) (inference.Pipeline, error) {
	if model == "" {
		return nil, fmt.Errorf("huggingface: empty model id for task %q", task)
	}
	if b.cfg.Warmup {
		if err := b.probe(ctx, model); err != nil {
			return nil, err
		}
	}
	return &pipeline{backend: b, task: task, model: model, endpoint: b.modelURL("models", model)}, nil
}

// Ping checks that the API answers at all.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 500 {
		return mapHTTPError(resp.StatusCode, resp.Status)
	}
	return nil
}

func (b *Backend) probe(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.modelURL("status", model), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	b.logger.Debug("model status probed", zap.String("model", model))
	return nil
}

func (b *Backend) authorize(req *http.Request) {
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
}

// modelURL joins base/kind/model, escaping each path segment of the model id.
func (b *Backend) modelURL(kind, model string) string {
	segments := strings.Split(model, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.cfg.BaseURL + "/" + kind + "/" + strings.Join(segments, "/")
}

// =============================================================================
// Pipeline
// =============================================================================

type requestOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type request struct {
	Inputs     any            `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    requestOptions `json:"options"`
}

type pipeline struct {
	backend  *Backend
	task     inference.Task
	model    string
	endpoint string
}

func (p *pipeline) Task() inference.Task { return p.task }
func (p *pipeline) Model() string        { return p.model }

// Run implements inference.Pipeline.
func (p *pipeline) Run(ctx context.Context, in inference.Input) (json.RawMessage, error) {
	req, err := p.newRequest(ctx, in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.backend.client.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body)
		p.backend.logger.Warn("inference api error",
			zap.String("model", p.model),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return nil, mapHTTPError(resp.StatusCode, msg)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, mapTransportError(err)
	}
	if !json.Valid(body) {
		return nil, types.NewUnexpectedOutputError(string(p.task), fmt.Errorf("response is not JSON"))
	}

	p.backend.logger.Debug("inference api call",
		zap.String("model", p.model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	return json.RawMessage(body), nil
}

func (p *pipeline) newRequest(ctx context.Context, in inference.Input) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	if in.Raw != nil {
		body = bytes.NewReader(in.Raw)
		contentType = in.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	} else {
		data, err := json.Marshal(request{
			Inputs:     in.Inputs,
			Parameters: in.Parameters,
			Options:    requestOptions{WaitForModel: p.backend.cfg.WaitForModel, UseCache: true},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if in.Raw != nil && p.backend.cfg.WaitForModel {
		req.Header.Set("X-Wait-For-Model", "true")
	}
	p.backend.authorize(req)
	return req, nil
}
