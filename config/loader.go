// =============================================================================
// 📦 LokingAI 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("LK").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
//
// 环境变量名由前缀与嵌套 env tag 以下划线拼接，例如
// LK_IMAGE_MAXSIZE、LK_DOCUMENT_CONTENT_TYPES、LK_LOG_LEVEL。
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 LokingAI 的完整配置结构。
// 启动时构建一次，之后只读。
type Config struct {
	// Name 服务名称
	Name string `yaml:"name" env:"NAME"`

	// Debug 调试模式
	Debug bool `yaml:"debug" env:"DEBUG"`

	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Image 图片上传限制
	Image UploadConfig `yaml:"image" env:"IMAGE"`

	// Document 文档上传限制
	Document DocumentConfig `yaml:"document" env:"DOCUMENT"`

	// Inference 推理后端配置
	Inference InferenceConfig `yaml:"inference" env:"INFERENCE"`

	// Redis 响应缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Cache 响应缓存策略
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// CORS 允许的来源，"*" 表示全部
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 每个 IP 每秒请求数
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求数
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// API Keys，为空时不启用认证
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// JWT 认证
	JWT JWTConfig `yaml:"jwt" env:"JWT"`
	// TLS 证书与私钥，均设置时以 HTTPS 监听
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// JWTConfig HS256 JWT 认证配置，Secret 为空时不启用
type JWTConfig struct {
	Secret   string `yaml:"secret" env:"SECRET"`
	Issuer   string `yaml:"issuer" env:"ISSUER"`
	Audience string `yaml:"audience" env:"AUDIENCE"`
}

// UploadConfig 单个模态的上传白名单与大小上限
type UploadConfig struct {
	// 允许的 Content-Type
	ContentTypes []string `yaml:"content_types" env:"CTYPES"`
	// 最大文件大小（MB）
	MaxSizeMB int `yaml:"max_size_mb" env:"MAXSIZE"`
}

// DocumentConfig 文档上传与 PDF 栅格化配置
type DocumentConfig struct {
	// 允许的 Content-Type
	ContentTypes []string `yaml:"content_types" env:"CONTENT_TYPES"`
	// 最大文件大小（MB）
	MaxSizeMB int `yaml:"max_size_mb" env:"MAXSIZE"`
	// pdftoppm 可执行文件路径
	PdftoppmPath string `yaml:"pdftoppm_path" env:"PDFTOPPM_PATH"`
	// 栅格化分辨率
	RasterDPI int `yaml:"raster_dpi" env:"RASTER_DPI"`
	// 栅格化超时
	RasterTimeout time.Duration `yaml:"raster_timeout" env:"RASTER_TIMEOUT"`
}

// InferenceConfig 推理后端配置
type InferenceConfig struct {
	// 后端类型: huggingface
	Backend string `yaml:"backend" env:"BACKEND"`
	// 推理 API 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API Key（可选）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 单次调用超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 模型未就绪时是否等待加载
	WaitForModel bool `yaml:"wait_for_model" env:"WAIT_FOR_MODEL"`
	// 加载模型句柄时是否预检模型状态
	Warmup bool `yaml:"warmup" env:"WARMUP"`
	// 单个请求内并发调用上限（多问题 / 多句对）
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
	// 各任务绑定的模型
	Models ModelsConfig `yaml:"models" env:"MODELS"`
}

// ModelsConfig 每个任务固定使用的模型标识
type ModelsConfig struct {
	TextClassification        string `yaml:"text_classification" env:"TEXT_CLASSIFICATION"`
	Sentiment                 string `yaml:"sentiment" env:"SENTIMENT"`
	Summarization             string `yaml:"summarization" env:"SUMMARIZATION"`
	QuestionAnswering         string `yaml:"question_answering" env:"QUESTION_ANSWERING"`
	ZeroShot                  string `yaml:"zero_shot" env:"ZERO_SHOT"`
	FillMask                  string `yaml:"fill_mask" env:"FILL_MASK"`
	SentenceSimilarity        string `yaml:"sentence_similarity" env:"SENTENCE_SIMILARITY"`
	ImageClassification       string `yaml:"image_classification" env:"IMAGE_CLASSIFICATION"`
	ObjectDetection           string `yaml:"object_detection" env:"OBJECT_DETECTION"`
	ImageSegmentation         string `yaml:"image_segmentation" env:"IMAGE_SEGMENTATION"`
	DocumentQuestionAnswering string `yaml:"document_question_answering" env:"DOCUMENT_QUESTION_ANSWERING"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 启用 TLS 连接
	TLSEnabled bool `yaml:"tls_enabled" env:"TLS_ENABLED"`
	// 后台健康检查间隔，0 表示关闭
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// CacheConfig 响应缓存策略
type CacheConfig struct {
	// 缓存有效期
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: DEBUG, INFO, WARN, ERROR（大小写不敏感）
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
	// 滚动日志文件
	File LogFileConfig `yaml:"file" env:"FILE"`
}

// LogFileConfig 滚动日志文件配置，Path 为空时不写文件
type LogFileConfig struct {
	Path       string `yaml:"path" env:"PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "LK",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖；数值解析失败直接报错，不回退默认值
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 空值与未设置等价
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", envValue, envKey, err)
		}
	}

	return nil
}

// setFieldValue 按字段类型转换环境变量的值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		// 仅字面量 "true"（大小写不敏感）为真，其余一律为假
		field.SetBool(parseBool(value))

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(splitList(value)))
		}
	}

	return nil
}

// parseBool 宽松布尔解析，不会失败
func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// splitList 逗号分隔，去除空白与空项
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 服务器
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, "rate limit must not be negative")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, "tls_cert_file and tls_key_file must be set together")
	}

	// 上传限制
	if len(c.Image.ContentTypes) == 0 {
		errs = append(errs, "image content types must not be empty")
	}
	if c.Image.MaxSizeMB <= 0 {
		errs = append(errs, "image max size must be positive")
	}
	if len(c.Document.ContentTypes) == 0 {
		errs = append(errs, "document content types must not be empty")
	}
	if c.Document.MaxSizeMB <= 0 {
		errs = append(errs, "document max size must be positive")
	}
	if c.Document.RasterDPI <= 0 {
		errs = append(errs, "document raster dpi must be positive")
	}

	// 推理
	if c.Inference.BaseURL == "" {
		errs = append(errs, "inference base_url is required")
	}
	if c.Inference.MaxConcurrency <= 0 {
		errs = append(errs, "inference max_concurrency must be positive")
	}

	// 缓存与日志
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache ttl must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
