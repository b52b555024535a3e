// =============================================================================
// LokingAI 主入口
// =============================================================================
// 多模态推理网关入口点，包含 HTTP 服务、健康检查、Prometheus 指标
//
// 使用方法:
//
//	lokingai serve                       # 启动服务
//	lokingai serve --config config.yaml  # 指定配置文件
//	lokingai version                     # 显示版本信息
//	lokingai health                      # 健康检查
// =============================================================================

// @title LokingAI API
// @version 1.0.0
// @description LokingAI exposes hosted ML models for text, image and document inputs over one HTTP API.
// @description
// @description ## Features
// @description - Text classification, sentiment, summarization, question answering, zero-shot labels, mask filling, sentence similarity
// @description - Image classification, object detection and segmentation (multipart or base64)
// @description - Document question answering with PDF rasterization
// @description - Uniform {"error","data"} envelope, health and metrics endpoints

// @contact.name LokingAI Team
// @contact.url https://github.com/BaSui01/lokingai

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/BaSui01/lokingai/config"
	"github.com/BaSui01/lokingai/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	// 格式错误的环境变量在这里直接失败
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log, cfg.Debug)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting LokingAI",
		zap.String("name", cfg.Name),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, cfg.Inference.Backend, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	srv := NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown(context.Background())

	if otelProviders != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := otelProviders.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown error", zap.Error(err))
		}
		cancel()
	}

	logger.Info("LokingAI stopped")
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	_ = fs.Parse(args)

	if err := checkHealth(&http.Client{Timeout: 5 * time.Second}, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func checkHealth(client *http.Client, addr string) error {
	resp, err := client.Get(strings.TrimRight(addr, "/") + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// 📝 日志初始化
// =============================================================================

// parseLevel 解析日志级别，大小写不敏感，未知值使用 INFO
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig(format string) zapcore.EncoderConfig {
	if format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return ec
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}

// buildLogger 按配置构建 logger；File.Path 非空时额外写入滚动日志文件（始终为 JSON）
func buildLogger(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)
	if debug {
		level = zapcore.DebugLevel
	}

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	if cfg.File.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig("json")), zapcore.AddSync(rotating), level)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig(encoding),
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapConfig.Build(opts...)
}

func initLogger(cfg config.LogConfig, debug bool) *zap.Logger {
	logger, err := buildLogger(cfg, debug)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
		logger.Warn("invalid log config, using defaults", zap.Error(err))
	}
	return logger
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("LokingAI %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`LokingAI - multi-modal inference gateway

Usage:
  lokingai <command> [options]

Commands:
  serve     Start the LokingAI server
  version   Show version information
  health    Check server health
  help      Show this help

Serve options:
  --config  Path to YAML config file (LK_* environment variables override it)

Health options:
  --addr    Server address (default http://localhost:8080)`)
}
