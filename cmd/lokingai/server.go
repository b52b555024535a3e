package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/BaSui01/lokingai/api/handlers"
	"github.com/BaSui01/lokingai/config"
	"github.com/BaSui01/lokingai/inference"
	"github.com/BaSui01/lokingai/inference/huggingface"
	"github.com/BaSui01/lokingai/internal/cache"
	"github.com/BaSui01/lokingai/internal/imaging"
	"github.com/BaSui01/lokingai/internal/metrics"
	"github.com/BaSui01/lokingai/internal/server"
	"github.com/BaSui01/lokingai/internal/telemetry"
	"github.com/BaSui01/lokingai/internal/upload"
	"github.com/BaSui01/lokingai/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ 服务器结构
// =============================================================================

// skipAuthPaths 不需要认证的路径
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}

// Server 是 LokingAI 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 推理
	backend  inference.Backend
	registry *inference.Registry

	// 响应缓存，Redis 未启用时为 nil
	cache *cache.Manager

	// 指标收集器
	metricsCollector *metrics.Collector
	registerer       prometheus.Registerer
	gatherer         prometheus.Gatherer

	healthHandler *handlers.HealthHandler

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc

	shutdownOnce sync.Once
}

// ServerOption 定制 Server 依赖
type ServerOption func(*Server)

// WithBackend 使用指定推理后端代替按配置创建的后端
func WithBackend(b inference.Backend) ServerOption {
	return func(s *Server) { s.backend = b }
}

// WithMetricsRegistry 将指标注册到 reg 并由 /metrics 暴露
func WithMetricsRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}

	if err := s.startHTTPServer(handler); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("backend", s.backend.Name()),
		zap.Bool("response_cache", s.cache != nil),
	)
	return nil
}

// Handler 组装依赖、路由与中间件链，返回 API 根 handler。
// 多次调用会重复初始化，只应调用一次。
func (s *Server) Handler() (http.Handler, error) {
	s.metricsCollector = metrics.NewCollectorWithRegisterer("lokingai", s.registerer, s.logger)

	if err := s.initBackend(); err != nil {
		return nil, err
	}
	if err := s.initCache(); err != nil {
		return nil, err
	}

	// 全局 MeterProvider 在遥测禁用时为 noop
	otelObserver, err := telemetry.NewInferenceObserver(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("init inference telemetry: %w", err)
	}

	s.registry = inference.NewRegistry(s.backend, modelSet(s.cfg.Inference.Models), s.logger,
		inference.WithObserver(s.metricsCollector),
		inference.WithObserver(otelObserver),
		inference.WithLoadTimeout(s.cfg.Inference.Timeout))

	mux := s.routes()

	var store responseStore
	if s.cache != nil {
		store = s.cache
	}

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.metricsCollector),
		RequestLogger(s.logger),
		BodyLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger),
		JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger),
		ResponseCache(store, CachePolicy{TTL: s.cfg.Cache.TTL, KeyPrefix: s.cfg.Cache.KeyPrefix},
			s.metricsCollector, s.logger),
	), nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

func (s *Server) initBackend() error {
	if s.backend != nil {
		return nil
	}
	switch s.cfg.Inference.Backend {
	case "", "huggingface":
		s.backend = huggingface.New(huggingface.Config{
			BaseURL:         s.cfg.Inference.BaseURL,
			APIKey:          s.cfg.Inference.APIKey,
			Timeout:         s.cfg.Inference.Timeout,
			WaitForModel:    s.cfg.Inference.WaitForModel,
			Warmup:          s.cfg.Inference.Warmup,
			MaxConnsPerHost: 4 * s.cfg.Inference.MaxConcurrency,
		}, s.logger)
		return nil
	default:
		return fmt.Errorf("unknown inference backend %q", s.cfg.Inference.Backend)
	}
}

func (s *Server) initCache() error {
	if !s.cfg.Redis.Enabled {
		s.logger.Info("redis disabled, response cache off")
		return nil
	}
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = s.cfg.Redis.Addr
	cacheCfg.Password = s.cfg.Redis.Password
	cacheCfg.DB = s.cfg.Redis.DB
	cacheCfg.PoolSize = s.cfg.Redis.PoolSize
	cacheCfg.MinIdleConns = s.cfg.Redis.MinIdleConns
	cacheCfg.TLSEnabled = s.cfg.Redis.TLSEnabled
	cacheCfg.HealthCheckInterval = s.cfg.Redis.HealthCheckInterval
	cacheCfg.DefaultTTL = s.cfg.Cache.TTL

	m, err := cache.NewManager(cacheCfg, s.logger)
	if err != nil {
		return fmt.Errorf("init response cache: %w", err)
	}
	s.cache = m
	return nil
}

// routes 注册健康检查与各模态路由
func (s *Server) routes() *http.ServeMux {
	cfg := s.cfg
	logger := s.logger

	s.healthHandler = handlers.NewHealthHandler(Version, s.registry, logger)
	if s.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.cache.Ping))
	}

	text := handlers.NewTextHandler(inference.NewTextProcessor(s.registry, logger),
		cfg.Inference.MaxConcurrency, logger)
	image := handlers.NewImageHandler(inference.NewImageProcessor(s.registry, logger),
		upload.NewValidator(cfg.Image.ContentTypes, cfg.Image.MaxSizeMB), s.metricsCollector, logger)
	document := handlers.NewDocumentHandler(inference.NewDocumentProcessor(s.registry, logger),
		handlers.DocumentOptions{
			Validator: upload.NewValidator(cfg.Document.ContentTypes, cfg.Document.MaxSizeMB),
			Rasterizer: imaging.NewPdftoppmRasterizer(cfg.Document.PdftoppmPath,
				cfg.Document.RasterDPI, cfg.Document.RasterTimeout, logger),
			Observer:       s.metricsCollector,
			MaxConcurrency: cfg.Inference.MaxConcurrency,
		}, logger)

	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 模态路由，按前缀挂载
	// ========================================
	mount(mux, "/text", text)
	mount(mux, "/image", image)
	mount(mux, "/document", document)
	mount(mux, "/video", handlers.NewVideoHandler(logger))
	mount(mux, "/audio", handlers.NewAudioHandler(logger))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, types.NewError(types.ErrNotFound, "not found"), logger)
	})
	return mux
}

// mount 将子路由挂载到 prefix 下，/prefix 重定向到 /prefix/
func mount(mux *http.ServeMux, prefix string, h http.Handler) {
	mux.Handle(prefix+"/", http.StripPrefix(prefix, h))
}

// modelSet 将配置中的模型表转换为 inference.ModelSet
func modelSet(m config.ModelsConfig) inference.ModelSet {
	return inference.ModelSet{
		inference.TaskTextClassification:  m.TextClassification,
		inference.TaskSentiment:           m.Sentiment,
		inference.TaskSummarization:       m.Summarization,
		inference.TaskQuestionAnswering:   m.QuestionAnswering,
		inference.TaskZeroShot:            m.ZeroShot,
		inference.TaskFillMask:            m.FillMask,
		inference.TaskSentenceSimilarity:  m.SentenceSimilarity,
		inference.TaskImageClassification: m.ImageClassification,
		inference.TaskObjectDetection:     m.ObjectDetection,
		inference.TaskImageSegmentation:   m.ImageSegmentation,
		inference.TaskDocumentQA:          m.DocumentQuestionAnswering,
	}
}

func (s *Server) startHTTPServer(handler http.Handler) error {
	s.httpManager = server.NewManager(handler, server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		TLSCertFile:     s.cfg.Server.TLSCertFile,
		TLSKeyFile:      s.cfg.Server.TLSKeyFile,
	}, s.logger)

	return s.httpManager.Start()
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.metricsManager = server.NewManager(mux, server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号或 ctx 结束，然后优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务，可重复调用
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Starting graceful shutdown...")
		ctx := context.Background()

		if s.rateLimiterCancel != nil {
			s.rateLimiterCancel()
		}
		if s.httpManager != nil {
			if err := s.httpManager.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", zap.Error(err))
			}
		}
		if s.metricsManager != nil {
			if err := s.metricsManager.Shutdown(ctx); err != nil {
				s.logger.Error("Metrics server shutdown error", zap.Error(err))
			}
		}
		if s.cache != nil {
			if err := s.cache.Close(); err != nil {
				s.logger.Error("cache close error", zap.Error(err))
			}
		}
		s.logger.Info("Graceful shutdown completed")
	})
}
