// =============================================================================
// 📦 DetectFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Service:    DefaultServiceConfig(),
		Batch:      DefaultBatchConfig(),
		Preprocess: DefaultPreprocessConfig(),
		Cache:      DefaultCacheConfig(),
		Log:        DefaultLogConfig(),
		Metrics:    DefaultMetricsConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServiceConfig 返回默认推理服务配置
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Host:          "",
		Scheme:        "http",
		BasePath:      "/local/detectx",
		Username:      "",
		Password:      "",
		Timeout:       30 * time.Second,
		MaxConns:      8,
		TLSSkipVerify: false,
		TLSCACert:     "",
	}
}

// DefaultBatchConfig 返回默认批处理配置
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		InputDir:       ".",
		OutputPath:     "results.json",
		Mode:           "jpeg",
		Workers:        3,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		MinConfidence:  0,
		RateLimitRPS:   0,
		RateLimitBurst: 1,
		Extensions:     []string{".jpg", ".jpeg", ".png", ".bmp"},
	}
}

// DefaultPreprocessConfig 返回默认预处理配置
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		TargetWidth:  0,
		TargetHeight: 0,
		JPEGQuality:  95,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:    false,
		Tier:       "memory",
		MaxEntries: 1024,
		TTL:        time.Hour,
		Redis:      DefaultRedisConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultLogConfig 返回默认日志配置
//
// 日志默认写 stderr，stdout 留给进度与结果输出。
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		Namespace:  "detectflow",
		ListenAddr: ":9091",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "detectflow",
		SampleRate:   0.1,
	}
}
