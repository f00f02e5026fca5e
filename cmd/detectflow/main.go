// =============================================================================
// DetectFlow 主入口
// =============================================================================
// 批量对象检测客户端，驱动摄像机端 detectx 推理服务
//
// 使用方法:
//
//	detectflow batch -host 192.168.0.90 -dir ./images   # 批量推理
//	detectflow batch -config detectflow.yaml            # 指定配置文件
//	detectflow infer -host 192.168.0.90 -image dog.jpg  # 单图推理
//	detectflow capabilities -host 192.168.0.90          # 查询服务能力
//	detectflow health -host 192.168.0.90                # 健康检查
//	detectflow version                                  # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/detectflow/batch"
	"github.com/BaSui01/detectflow/cache"
	"github.com/BaSui01/detectflow/client"
	"github.com/BaSui01/detectflow/config"
	"github.com/BaSui01/detectflow/internal/metrics"
	"github.com/BaSui01/detectflow/internal/telemetry"
	"github.com/BaSui01/detectflow/internal/tlsutil"
	"github.com/BaSui01/detectflow/preprocess"
	"github.com/BaSui01/detectflow/retry"
	"github.com/BaSui01/detectflow/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// maxFailureLines 批次摘要中展示的失败明细上限
const maxFailureLines = 10

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "batch":
		os.Exit(runBatch(os.Args[2:]))
	case "infer":
		os.Exit(runInfer(os.Args[2:]))
	case "capabilities":
		os.Exit(runCapabilities(os.Args[2:]))
	case "health":
		os.Exit(runHealth(os.Args[2:]))
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🧵 batch 命令
// =============================================================================

// runBatch 执行批量推理。返回进程退出码：批次跑完即 0（允许部分图像
// 失败），配置或启动失败、中断取消为 1。
func runBatch(args []string) int {
	// 解析命令行参数
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	dir := fs.String("dir", "", "Image directory or single image file")
	host := fs.String("host", "", "Inference service host, e.g. 192.168.0.90")
	user := fs.String("user", "", "Digest auth username")
	pass := fs.String("pass", "", "Digest auth password")
	mode := fs.String("mode", "", "Submission mode: jpeg or tensor")
	workers := fs.Int("workers", 0, "Concurrent workers")
	confidence := fs.Float64("confidence", 0, "Minimum confidence threshold (0-1)")
	output := fs.String("output", "", "Report output path (JSON)")
	metricsAddr := fs.String("metrics-addr", "", "Expose Prometheus metrics on this address during the run")
	fs.Parse(args)

	// 加载配置
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// 命令行参数覆盖配置文件
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.Batch.InputDir = *dir
		case "host":
			cfg.Service.Host = *host
		case "user":
			cfg.Service.Username = *user
		case "pass":
			cfg.Service.Password = *pass
		case "mode":
			cfg.Batch.Mode = *mode
		case "workers":
			cfg.Batch.Workers = *workers
		case "confidence":
			cfg.Batch.MinConfidence = *confidence
		case "output":
			cfg.Batch.OutputPath = *output
		case "metrics-addr":
			cfg.Metrics.Enabled = true
			cfg.Metrics.ListenAddr = *metricsAddr
		}
	})

	// 验证配置
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}
	if cfg.Service.Host == "" {
		fmt.Fprintln(os.Stderr, "Service host is required (use -host or config file)")
		return 1
	}
	if cfg.Batch.InputDir == "" {
		fmt.Fprintln(os.Stderr, "Input path is required (use -dir or config file)")
		return 1
	}

	// 连接池不小于并发数，避免 worker 之间争用连接
	if cfg.Service.MaxConns < cfg.Batch.Workers {
		cfg.Service.MaxConns = cfg.Batch.Workers
	}

	// 初始化日志
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("DetectFlow starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// Initialize OpenTelemetry
	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	// 指标采集与可选的 /metrics 服务
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		if cfg.Metrics.ListenAddr != "" {
			metricsSrv := startMetricsServer(cfg.Metrics.ListenAddr, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				metricsSrv.Shutdown(shutdownCtx)
			}()
		}
	}

	// 创建服务客户端
	clientCfg, err := serviceClientConfig(cfg.Service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid TLS config: %v\n", err)
		return 1
	}
	clientOpts := []client.Option{}
	if collector != nil {
		clientOpts = append(clientOpts, client.WithCollector(collector))
	}
	c := client.New(clientCfg, logger, clientOpts...)
	defer c.Close()

	// Ctrl-C / SIGTERM 取消批次
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动前探活：连不上服务就不进批
	probeCtx, cancelProbe := context.WithTimeout(ctx, cfg.Service.Timeout)
	health, err := c.Health(probeCtx)
	cancelProbe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service unreachable at %s: %v\n", cfg.Service.BaseURL(), err)
		return 1
	}
	logger.Info("服务就绪",
		zap.Bool("running", health.Running),
		zap.Int("queue_size", health.QueueSize),
	)

	// 扫描输入图像
	tasks, err := batch.Scan(cfg.Batch.InputDir, cfg.Batch.Extensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return 1
	}
	logger.Info("扫描完成",
		zap.String("input", cfg.Batch.InputDir),
		zap.Int("images", len(tasks)),
	)

	// 检测结果缓存（Redis 不可用时降级为本地）
	detCache := buildCache(ctx, cfg.Cache, logger, collector)
	if detCache != nil {
		defer detCache.Close()
	}

	// 组装批处理 Runner
	runnerOpts := []batch.Option{
		batch.WithProgress(func(done, total, succeeded int) {
			fmt.Printf("\rProcessing %d/%d (%d ok)", done, total, succeeded)
		}),
	}
	if collector != nil {
		runnerOpts = append(runnerOpts, batch.WithCollector(collector))
	}
	if detCache != nil {
		runnerOpts = append(runnerOpts, batch.WithCache(detCache))
	}

	runner := batch.NewRunner(c, batch.Config{
		Mode:           cfg.Batch.Mode,
		Workers:        cfg.Batch.Workers,
		MaxRetries:     cfg.Batch.MaxRetries,
		RetryBaseDelay: cfg.Batch.RetryBaseDelay,
		MinConfidence:  cfg.Batch.MinConfidence,
		TensorWidth:    cfg.Preprocess.TargetWidth,
		TensorHeight:   cfg.Preprocess.TargetHeight,
		RateLimitRPS:   cfg.Batch.RateLimitRPS,
		RateLimitBurst: cfg.Batch.RateLimitBurst,
	}, logger, runnerOpts...)

	report, err := runner.Run(ctx, tasks)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch aborted: %v\n", err)
		return 1
	}

	code := 0
	if cfg.Batch.OutputPath != "" {
		if err := batch.WriteReport(cfg.Batch.OutputPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
			code = 1
		} else {
			fmt.Printf("Report written to %s\n", cfg.Batch.OutputPath)
		}
	}

	printSummary(report)

	// 中断的批次：未开工的任务都记为失败，退出码标记为异常
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "Batch interrupted before all images were processed")
		return 1
	}
	return code
}

// =============================================================================
// 🔍 infer 命令
// =============================================================================

// runInfer 对单张图像执行推理，mode 为 both 时依次跑 jpeg 和 tensor
// 两种提交方式做对照。
func runInfer(args []string) int {
	fs := flag.NewFlagSet("infer", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	host := fs.String("host", "", "Inference service host, e.g. 192.168.0.90")
	user := fs.String("user", "", "Digest auth username")
	pass := fs.String("pass", "", "Digest auth password")
	image := fs.String("image", "", "Image file to run inference on")
	mode := fs.String("mode", "jpeg", "Submission mode: jpeg, tensor or both")
	confidence := fs.Float64("confidence", 0, "Minimum confidence threshold (0-1)")
	fs.Parse(args)

	if *image == "" {
		fmt.Fprintln(os.Stderr, "Image path is required (use -image)")
		return 1
	}

	var modes []string
	switch *mode {
	case "jpeg", "tensor":
		modes = []string{*mode}
	case "both":
		modes = []string{"jpeg", "tensor"}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q (expected jpeg, tensor or both)\n", *mode)
		return 1
	}

	cfg, c, err := buildServiceClient(*configPath, *host, *user, *pass)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 先打印服务侧信息，推理结果才有上下文
	caps, err := c.Capabilities(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch capabilities: %v\n", err)
		return 1
	}
	fmt.Printf("Server:       %s %s\n", caps.Server, caps.Version)
	fmt.Printf("Model input:  %dx%dx%d (%s)\n",
		caps.Model.InputWidth, caps.Model.InputHeight, caps.Model.Channels, caps.Model.AspectRatio)
	fmt.Printf("Classes:      %d\n", len(caps.Model.Classes))
	fmt.Printf("Queue depth:  %d\n", caps.Model.MaxQueueSize)

	health, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch health: %v\n", err)
		return 1
	}
	fmt.Printf("Service:      running=%v queue=%d full=%v\n",
		health.Running, health.QueueSize, health.QueueFull)

	retryer := retry.New(&retry.Policy{
		MaxRetries: cfg.Batch.MaxRetries,
		BaseDelay:  cfg.Batch.RetryBaseDelay,
	}, zap.NewNop())

	code := 0
	for _, m := range modes {
		dets, attempts, elapsed, err := inferOnce(ctx, c, caps, cfg, retryer, *image, m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] inference failed: %v\n", m, err)
			code = 1
			continue
		}

		kept := dets
		if *confidence > 0 {
			kept = make([]types.Detection, 0, len(dets))
			for _, d := range dets {
				if d.Confidence >= *confidence {
					kept = append(kept, d)
				}
			}
		}

		fmt.Printf("\n[%s] %d detections in %.3fs (%d attempts)\n",
			m, len(kept), elapsed.Seconds(), attempts)
		for _, d := range kept {
			fmt.Printf("  %-14s %5.1f%%  box=(%d,%d %dx%d)\n",
				d.Label, d.Confidence*100,
				d.BBoxPixels.X, d.BBoxPixels.Y, d.BBoxPixels.W, d.BBoxPixels.H)
		}
	}
	return code
}

// inferOnce 按指定模式编码图像并发送一次推理，busy 时按配置重试。
func inferOnce(ctx context.Context, c *client.Client, caps *types.ServiceCapabilities,
	cfg *config.Config, retryer retry.Retryer, path, mode string) ([]types.Detection, int, time.Duration, error) {

	var call func() ([]types.Detection, error)
	switch mode {
	case "tensor":
		w, h := cfg.Preprocess.TargetWidth, cfg.Preprocess.TargetHeight
		if w <= 0 || h <= 0 {
			w, h = caps.Model.InputWidth, caps.Model.InputHeight
		}
		tensor, err := preprocess.LetterboxFile(path, w, h)
		if err != nil {
			return nil, 0, 0, err
		}
		call = func() ([]types.Detection, error) {
			return c.InferTensor(ctx, tensor, -1)
		}
	default:
		data, err := client.LoadJPEG(path)
		if err != nil {
			return nil, 0, 0, err
		}
		call = func() ([]types.Detection, error) {
			return c.InferJPEG(ctx, data, -1)
		}
	}

	start := time.Now()
	dets, attempts, err := retry.DoWithResultTyped(retryer, ctx, call)
	return dets, attempts, time.Since(start), err
}

// =============================================================================
// 📋 capabilities / health 命令
// =============================================================================

func runCapabilities(args []string) int {
	return runServiceQuery("capabilities", args, func(ctx context.Context, c *client.Client) (any, error) {
		return c.Capabilities(ctx)
	})
}

func runHealth(args []string) int {
	return runServiceQuery("health", args, func(ctx context.Context, c *client.Client) (any, error) {
		return c.Health(ctx)
	})
}

// runServiceQuery 查询服务端只读接口并以缩进 JSON 打印结果。
func runServiceQuery(name string, args []string, fetch func(context.Context, *client.Client) (any, error)) int {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	host := fs.String("host", "", "Inference service host, e.g. 192.168.0.90")
	user := fs.String("user", "", "Digest auth username")
	pass := fs.String("pass", "", "Digest auth password")
	fs.Parse(args)

	cfg, c, err := buildServiceClient(*configPath, *host, *user, *pass)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Service.Timeout)
	defer cancel()

	result, err := fetch(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode response: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// =============================================================================
// 📊 批次摘要
// =============================================================================

func printSummary(report *types.BatchReport) {
	stats := report.Statistics

	fmt.Println()
	fmt.Println("========== Batch Summary ==========")
	fmt.Printf("Run ID:         %s\n", report.RunID)
	fmt.Printf("Images:         %d (%d ok, %d failed)\n",
		stats.TotalImages, stats.Successful, stats.Failed)
	fmt.Printf("Detections:     %d\n", stats.TotalDetections)
	fmt.Printf("Total time:     %.2fs\n", stats.TotalTime.Seconds())
	fmt.Printf("Avg inference:  %.3fs\n", stats.AvgInference.Seconds())
	fmt.Printf("Throughput:     %.2f images/s\n", stats.ImagesPerSecond)

	if top := batch.TopClasses(report); len(top) > 0 {
		fmt.Println("Classes:")
		for _, cc := range top {
			fmt.Printf("  %-14s %d\n", cc.Label, cc.Count)
		}
	}

	if failures := batch.FailureSample(report, maxFailureLines); len(failures) > 0 {
		fmt.Printf("Failures (showing up to %d):\n", maxFailureLines)
		for _, f := range failures {
			fmt.Printf("  [%d] %s: %s\n", f.Index, f.SourceName, f.Error)
		}
	}
	fmt.Println("===================================")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("DetectFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`DetectFlow - Batch Object Detection Client

Usage:
  detectflow <command> [options]

Commands:
  batch         Run batch inference over an image directory
  infer         Run inference on a single image
  capabilities  Show service capabilities as JSON
  health        Show service health as JSON
  version       Show version information
  help          Show this help message

Options for 'batch':
  -config <path>        Path to configuration file (YAML)
  -dir <path>           Image directory or single image file
  -host <host>          Inference service host, e.g. 192.168.0.90
  -user <name>          Digest auth username
  -pass <secret>        Digest auth password
  -mode <jpeg|tensor>   Submission mode
  -workers <n>          Concurrent workers
  -confidence <f>       Minimum confidence threshold (0-1)
  -output <path>        Write JSON report to this path
  -metrics-addr <addr>  Expose Prometheus metrics during the run

Options for 'infer':
  -image <path>             Image file to run inference on
  -mode <jpeg|tensor|both>  Submission mode, both runs a comparison

Examples:
  detectflow batch -host 192.168.0.90 -dir ./images -output report.json
  detectflow batch -config detectflow.yaml -workers 5 -mode tensor
  detectflow infer -host 192.168.0.90 -image dog.jpg -mode both
  detectflow capabilities -host 192.168.0.90
  detectflow health -host 192.168.0.90
  detectflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// stdout 留给进度与结果，日志默认走 stderr
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}

// =============================================================================
// 🔧 装配辅助
// =============================================================================

// loadConfig 加载配置文件，path 为空时走默认搜索路径和环境变量。
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

// buildServiceClient 为轻量子命令组装配置与客户端，日志走 Nop。
func buildServiceClient(configPath, host, user, pass string) (*config.Config, *client.Client, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if host != "" {
		cfg.Service.Host = host
	}
	if user != "" {
		cfg.Service.Username = user
	}
	if pass != "" {
		cfg.Service.Password = pass
	}
	if cfg.Service.Host == "" {
		return nil, nil, errors.New("service host is required (use -host or config file)")
	}

	clientCfg, err := serviceClientConfig(cfg.Service)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid TLS config: %w", err)
	}
	return cfg, client.New(clientCfg, zap.NewNop()), nil
}

// serviceClientConfig 把服务配置翻译为客户端配置，按需加载自定义 CA。
func serviceClientConfig(svc config.ServiceConfig) (client.Config, error) {
	cc := client.Config{
		Host:          svc.Host,
		Scheme:        svc.Scheme,
		BasePath:      svc.BasePath,
		Username:      svc.Username,
		Password:      svc.Password,
		Timeout:       svc.Timeout,
		MaxConns:      svc.MaxConns,
		TLSSkipVerify: svc.TLSSkipVerify,
	}
	if svc.TLSCACert != "" {
		tlsCfg, err := tlsutil.ClientTLSWithCA(svc.TLSCACert)
		if err != nil {
			return client.Config{}, err
		}
		cc.TLSConfig = tlsCfg
	}
	return cc, nil
}

// buildCache 按配置组装检测结果缓存。Redis 连不上时降级为纯本地缓存，
// 批次照常跑。
func buildCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger, col *metrics.Collector) *cache.TieredCache {
	if !cfg.Enabled {
		return nil
	}

	cacheCfg := &cache.Config{
		LocalMaxSize: cfg.MaxEntries,
		LocalTTL:     cfg.TTL,
		RedisTTL:     cfg.TTL,
		EnableLocal:  cfg.Tier == "memory" || cfg.Tier == "tiered",
		EnableRedis:  cfg.Tier == "redis" || cfg.Tier == "tiered",
	}

	var rdb *redis.Client
	if cacheCfg.EnableRedis {
		var err error
		rdb, err = cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			logger.Warn("Redis 不可用，缓存降级为本地",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
			cacheCfg.EnableRedis = false
			cacheCfg.EnableLocal = true
			rdb = nil
		}
	}

	tiered := cache.NewTieredCache(rdb, cacheCfg, logger)
	if col != nil {
		tiered = tiered.WithCollector(col)
	}
	return tiered
}

// startMetricsServer 在独立端口暴露 Prometheus /metrics。
func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("Metrics server listening", zap.String("addr", addr))
	return srv
}
