// =============================================================================
// 📦 LokingAI 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// 默认允许的图片类型
var defaultImageContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Name:      "LokingAI",
		Debug:     false,
		Server:    DefaultServerConfig(),
		Image:     DefaultImageConfig(),
		Document:  DefaultDocumentConfig(),
		Inference: DefaultInferenceConfig(),
		Redis:     DefaultRedisConfig(),
		Cache:     DefaultCacheConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       2 * time.Minute,
		ShutdownTimeout:    15 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       100,
		RateLimitBurst:     200,
	}
}

// DefaultImageConfig 返回默认图片上传限制
func DefaultImageConfig() UploadConfig {
	return UploadConfig{
		ContentTypes: append([]string(nil), defaultImageContentTypes...),
		MaxSizeMB:    5,
	}
}

// DefaultDocumentConfig 返回默认文档上传限制（图片类型 + PDF）
func DefaultDocumentConfig() DocumentConfig {
	ctypes := append([]string(nil), defaultImageContentTypes...)
	return DocumentConfig{
		ContentTypes:  append(ctypes, "application/pdf"),
		MaxSizeMB:     5,
		PdftoppmPath:  "pdftoppm",
		RasterDPI:     200,
		RasterTimeout: 30 * time.Second,
	}
}

// DefaultInferenceConfig 返回默认推理配置
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		Backend:        "huggingface",
		BaseURL:        "https://api-inference.huggingface.co",
		Timeout:        90 * time.Second,
		WaitForModel:   true,
		Warmup:         false,
		MaxConcurrency: 4,
		Models:         DefaultModelsConfig(),
	}
}

// DefaultModelsConfig 返回每个任务的默认模型
func DefaultModelsConfig() ModelsConfig {
	return ModelsConfig{
		TextClassification:        "distilbert-base-uncased-finetuned-sst-2-english",
		Sentiment:                 "SamLowe/roberta-base-go_emotions",
		Summarization:             "facebook/bart-large-cnn",
		QuestionAnswering:         "deepset/roberta-base-squad2",
		ZeroShot:                  "facebook/bart-large-mnli",
		FillMask:                  "bert-base-uncased",
		SentenceSimilarity:        "sentence-transformers/all-MiniLM-L6-v2",
		ImageClassification:       "microsoft/resnet-50",
		ObjectDetection:           "facebook/detr-resnet-50",
		ImageSegmentation:         "facebook/detr-resnet-50-panoptic",
		DocumentQuestionAnswering: "impira/layoutlm-document-qa",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:             false,
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultCacheConfig 返回默认响应缓存策略
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:       30 * time.Second,
		KeyPrefix: "lokingai:resp:",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "INFO",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
		File: LogFileConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "lokingai",
		SampleRate:   0.1,
	}
}
