// =============================================================================
// 📦 DetectFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("detectflow.yaml").
//	    WithEnvPrefix("DETECTFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
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

// Config 是 DetectFlow 的完整配置结构
type Config struct {
	// Service 推理服务连接配置
	Service ServiceConfig `yaml:"service" env:"SERVICE"`

	// Batch 批处理配置
	Batch BatchConfig `yaml:"batch" env:"BATCH"`

	// Preprocess 图像预处理配置
	Preprocess PreprocessConfig `yaml:"preprocess" env:"PREPROCESS"`

	// Cache 检测结果缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServiceConfig 推理服务连接配置
type ServiceConfig struct {
	// 摄像机主机，如 192.168.0.90 或 camera.local:8080
	Host string `yaml:"host" env:"HOST"`
	// URL scheme: http, https
	Scheme string `yaml:"scheme" env:"SCHEME"`
	// 服务基础路径
	BasePath string `yaml:"base_path" env:"BASE_PATH"`
	// Digest 认证用户名（为空时不认证）
	Username string `yaml:"username" env:"USERNAME"`
	// Digest 认证密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 连接池大小
	MaxConns int `yaml:"max_conns" env:"MAX_CONNS"`
	// https 时跳过证书校验，用于自签名证书的摄像机
	TLSSkipVerify bool `yaml:"tls_skip_verify" env:"TLS_SKIP_VERIFY"`
	// 自定义 CA 证书路径（PEM），固定设备证书链时使用
	TLSCACert string `yaml:"tls_ca_cert" env:"TLS_CA_CERT"`
}

// BatchConfig 批处理配置
type BatchConfig struct {
	// 输入图像目录
	InputDir string `yaml:"input_dir" env:"INPUT_DIR"`
	// 结果报告输出路径
	OutputPath string `yaml:"output_path" env:"OUTPUT_PATH"`
	// 提交模式: jpeg, tensor
	Mode string `yaml:"mode" env:"MODE"`
	// 并发 worker 数
	Workers int `yaml:"workers" env:"WORKERS"`
	// busy 重试次数上限
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 重试退避基础间隔
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" env:"RETRY_BASE_DELAY"`
	// 置信度过滤阈值，0 表示不过滤
	MinConfidence float64 `yaml:"min_confidence" env:"MIN_CONFIDENCE"`
	// 请求速率限制（每秒），0 表示不限制
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 速率限制突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 扫描的图像扩展名
	Extensions []string `yaml:"extensions" env:"EXTENSIONS"`
}

// PreprocessConfig 图像预处理配置
type PreprocessConfig struct {
	// tensor 模式目标宽度，0 表示取服务能力中的模型输入宽度
	TargetWidth int `yaml:"target_width" env:"TARGET_WIDTH"`
	// tensor 模式目标高度，0 表示取服务能力中的模型输入高度
	TargetHeight int `yaml:"target_height" env:"TARGET_HEIGHT"`
	// 非 JPEG 输入重编码质量
	JPEGQuality int `yaml:"jpeg_quality" env:"JPEG_QUALITY"`
}

// CacheConfig 检测结果缓存配置
type CacheConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 缓存层级: memory, redis, tiered
	Tier string `yaml:"tier" env:"TIER"`
	// 内存层最大条目数
	MaxEntries int `yaml:"max_entries" env:"MAX_ENTRIES"`
	// 条目存活时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// Redis 层配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
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
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否暴露 Prometheus 指标
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 指标监听地址
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
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
		envPrefix:  "DETECTFLOW",
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

	// 3. 从环境变量覆盖
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

		// 获取 env tag
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

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
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
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
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

	// 验证服务配置
	if c.Service.Scheme != "http" && c.Service.Scheme != "https" {
		errs = append(errs, "service scheme must be http or https")
	}
	if c.Service.Timeout <= 0 {
		errs = append(errs, "service timeout must be positive")
	}
	if c.Service.MaxConns < 1 {
		errs = append(errs, "service max_conns must be at least 1")
	}

	// 验证批处理配置
	if c.Batch.Mode != "jpeg" && c.Batch.Mode != "tensor" {
		errs = append(errs, "batch mode must be jpeg or tensor")
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, "batch workers must be at least 1")
	}
	if c.Batch.MaxRetries < 0 {
		errs = append(errs, "batch max_retries must not be negative")
	}
	if c.Batch.MinConfidence < 0 || c.Batch.MinConfidence > 1 {
		errs = append(errs, "batch min_confidence must be between 0 and 1")
	}

	// 验证预处理配置
	if c.Preprocess.TargetWidth < 0 || c.Preprocess.TargetHeight < 0 {
		errs = append(errs, "preprocess target dimensions must not be negative")
	}
	if c.Preprocess.JPEGQuality < 1 || c.Preprocess.JPEGQuality > 100 {
		errs = append(errs, "preprocess jpeg_quality must be between 1 and 100")
	}

	// 验证缓存配置
	switch c.Cache.Tier {
	case "memory", "redis", "tiered":
	default:
		errs = append(errs, "cache tier must be memory, redis or tiered")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BaseURL 返回推理服务的基础 URL
func (s *ServiceConfig) BaseURL() string {
	host := strings.TrimSuffix(s.Host, "/")
	base := s.BasePath
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return fmt.Sprintf("%s://%s%s", s.Scheme, host, base)
}
