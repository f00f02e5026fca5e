package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/detectflow/cache"
	"github.com/BaSui01/detectflow/client"
	"github.com/BaSui01/detectflow/internal/ctxkeys"
	"github.com/BaSui01/detectflow/internal/metrics"
	"github.com/BaSui01/detectflow/preprocess"
	"github.com/BaSui01/detectflow/retry"
	"github.com/BaSui01/detectflow/types"
)

// ===== 🧵 批处理配置 =====

// 编码模式
const (
	ModeJPEG   = "jpeg"   // 整图 JPEG 上传，服务端解码缩放
	ModeTensor = "tensor" // 客户端 letterbox 预处理，上传原始张量
)

// DefaultWorkers 默认工作协程数。
// 与服务端接纳队列深度（3）一致：再多的并发只会换来 busy 拒绝。
const DefaultWorkers = 3

// Config 批处理运行参数
type Config struct {
	Mode           string        // 编码模式：jpeg 或 tensor
	Workers        int           // 并发工作协程数
	MaxRetries     int           // busy 最大重试次数
	RetryBaseDelay time.Duration // 线性退避基础延迟
	MinConfidence  float64       // 置信度过滤阈值，低于该值的检测被丢弃
	TensorWidth    int           // tensor 模式目标宽度，0 表示从 capabilities 获取
	TensorHeight   int           // tensor 模式目标高度，0 表示从 capabilities 获取
	RateLimitRPS   float64       // 每秒请求数上限，0 表示不限流
	RateLimitBurst int           // 限流突发容量
}

// DefaultConfig 返回默认批处理配置
func DefaultConfig() Config {
	return Config{
		Mode:           ModeJPEG,
		Workers:        DefaultWorkers,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		MinConfidence:  0,
		RateLimitBurst: 1,
	}
}

// Progress 进度回调，每个任务结束时触发一次，调用已串行化。
type Progress func(done, total, succeeded int)

// ===== 🚀 批处理运行器 =====

// Runner 批处理运行器。
// 固定大小的工作池从共享通道领取任务，结果按位置写入预分配
// 的切片，汇总后按索引排序，保证输出顺序与输入顺序无关于
// 调度时序。
type Runner struct {
	client    *client.Client
	cfg       Config
	logger    *zap.Logger
	retryer   retry.Retryer
	collector *metrics.Collector
	cache     *cache.TieredCache
	limiter   *rate.Limiter
	tracer    trace.Tracer
	progress  Progress
}

// Option 运行器选项
type Option func(*Runner)

// WithCollector 设置指标收集器
func WithCollector(collector *metrics.Collector) Option {
	return func(r *Runner) {
		r.collector = collector
	}
}

// WithCache 设置检测结果缓存
func WithCache(c *cache.TieredCache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithProgress 设置进度回调
func WithProgress(fn Progress) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// NewRunner 创建批处理运行器
func NewRunner(c *client.Client, cfg Config, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 参数兜底
	if cfg.Mode == "" {
		cfg.Mode = ModeJPEG
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}

	r := &Runner{
		client: c,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "batch")),
		tracer: otel.Tracer("detectflow/batch"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	policy := &retry.Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
	}
	if r.collector != nil {
		endpoint := inferEndpoint(cfg.Mode)
		col := r.collector
		policy.OnRetry = func(attempt int, err error, delay time.Duration) {
			col.RecordBusyRetry(endpoint)
		}
	}
	r.retryer = retry.New(policy, r.logger)

	return r
}

// Run 执行一批任务并聚合报告。
// 任务全部终结后才返回；取消不会让结果缺项，未开始的任务
// 会以失败结果补齐。只有运行前的配置级错误（非法模式、
// 无法获取张量尺寸）返回 error。
func (r *Runner) Run(ctx context.Context, tasks []types.ImageTask) (*types.BatchReport, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to run")
	}
	if r.cfg.Mode != ModeJPEG && r.cfg.Mode != ModeTensor {
		return nil, fmt.Errorf("unknown batch mode: %q", r.cfg.Mode)
	}

	// tensor 模式需要目标尺寸，缺省时向服务端询问
	width, height := r.cfg.TensorWidth, r.cfg.TensorHeight
	if r.cfg.Mode == ModeTensor && (width <= 0 || height <= 0) {
		caps, err := r.client.Capabilities(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve tensor input size: %w", err)
		}
		width = caps.Model.InputWidth
		height = caps.Model.InputHeight
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("service reported invalid input size %dx%d", width, height)
		}
	}

	runID := uuid.New().String()
	start := time.Now()

	r.logger.Info("批处理开始",
		zap.String("run_id", runID),
		zap.Int("tasks", len(tasks)),
		zap.String("mode", r.cfg.Mode),
		zap.Int("workers", r.cfg.Workers),
	)

	// 运行 ID 随 context 下传，客户端日志据此关联批次
	ctx = ctxkeys.WithRunID(ctx, runID)

	ctx, span := r.tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.String("batch.run_id", runID),
		attribute.String("batch.mode", r.cfg.Mode),
		attribute.Int("batch.tasks", len(tasks)),
		attribute.Int("batch.workers", r.cfg.Workers),
	))
	defer span.End()

	// 结果切片按位置预分配，工作协程各写各的槽位，无需加锁
	outcomes := make([]types.TaskOutcome, len(tasks))

	jobs := make(chan int, len(tasks))
	for pos := range tasks {
		jobs <- pos
	}
	close(jobs)

	// 进度回调串行化，done 严格单调递增
	var progressMu sync.Mutex
	done, succeeded := 0, 0
	noteDone := func(success bool) {
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		if success {
			succeeded++
		}
		if r.progress != nil {
			r.progress(done, len(tasks), succeeded)
		}
	}

	// 工作协程不返回错误，所有任务跑完后统一聚合
	var g errgroup.Group
	for w := 0; w < r.cfg.Workers; w++ {
		g.Go(func() error {
			for pos := range jobs {
				task := tasks[pos]

				// 取消后不再发起新任务，剩余任务记为失败
				if err := ctx.Err(); err != nil {
					outcomes[pos] = r.canceledOutcome(task, err)
				} else {
					outcomes[pos] = r.runTask(ctx, task, width, height)
				}

				noteDone(outcomes[pos].Success)
			}
			return nil
		})
	}
	_ = g.Wait()

	// 报告按任务索引排序，与调度时序解耦
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})

	elapsed := time.Since(start)
	report := BuildReport(runID, outcomes, elapsed)

	span.SetAttributes(
		attribute.Int("batch.successful", report.Statistics.Successful),
		attribute.Int("batch.failed", report.Statistics.Failed),
		attribute.Int("batch.detections", report.Statistics.TotalDetections),
	)

	r.logger.Info("批处理完成",
		zap.String("run_id", runID),
		zap.Int("successful", report.Statistics.Successful),
		zap.Int("failed", report.Statistics.Failed),
		zap.Int("detections", report.Statistics.TotalDetections),
		zap.Duration("elapsed", elapsed),
	)

	return report, nil
}

// ===== 🎯 单任务执行 =====

// runTask 执行单个任务：限流 → 编码 → 缓存/推理 → 过滤。
// 永远返回终态结果，不向上传播 error。
func (r *Runner) runTask(ctx context.Context, task types.ImageTask, width, height int) types.TaskOutcome {
	start := time.Now()

	if r.collector != nil {
		r.collector.TaskStarted()
		defer r.collector.TaskFinished()
	}

	ctx, span := r.tracer.Start(ctx, "batch.task", trace.WithAttributes(
		attribute.Int("task.index", task.Index),
		attribute.String("task.image", filepath.Base(task.SourcePath)),
		attribute.String("task.mode", r.cfg.Mode),
	))
	defer span.End()

	outcome := r.executeTask(ctx, task, start, width, height)

	if r.collector != nil {
		r.collector.RecordTask(r.cfg.Mode, outcome.Success, outcome.Elapsed)
		for _, det := range outcome.Detections {
			r.collector.RecordDetection(det.Label)
		}
	}

	span.SetAttributes(
		attribute.Bool("task.success", outcome.Success),
		attribute.Int("task.attempts", outcome.Attempts),
		attribute.Int("task.detections", len(outcome.Detections)),
	)
	if !outcome.Success {
		span.SetAttributes(attribute.String("task.error", outcome.Error))
	}

	return outcome
}

func (r *Runner) executeTask(ctx context.Context, task types.ImageTask, start time.Time, width, height int) types.TaskOutcome {
	// 限流：拿到令牌才继续
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return r.failedOutcome(task, start, 0, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	switch r.cfg.Mode {
	case ModeJPEG:
		payload, err := client.LoadJPEG(task.SourcePath)
		if err != nil {
			return r.failedOutcome(task, start, 0, err)
		}
		return r.infer(ctx, task, start, ModeJPEG, payload,
			func(callCtx context.Context) ([]types.Detection, error) {
				return r.client.InferJPEG(callCtx, payload, task.Index)
			})

	default: // ModeTensor，Run 已校验过
		tensor, err := preprocess.LetterboxFile(task.SourcePath, width, height)
		if err != nil {
			return r.failedOutcome(task, start, 0, err)
		}
		cacheMode := fmt.Sprintf("%s:%dx%d", ModeTensor, width, height)
		return r.infer(ctx, task, start, cacheMode, tensor.Pix,
			func(callCtx context.Context) ([]types.Detection, error) {
				return r.client.InferTensor(callCtx, tensor, task.Index)
			})
	}
}

// infer 先查缓存，未命中再发起带重试的推理调用，成功后回填缓存。
// 缓存键由编码模式和图像负载共同决定，同一张图在 jpeg 与
// tensor 模式下互不串扰。
func (r *Runner) infer(ctx context.Context, task types.ImageTask, start time.Time,
	cacheMode string, payload []byte, call func(context.Context) ([]types.Detection, error)) types.TaskOutcome {

	var key string
	if r.cache != nil {
		key = cache.Key(cacheMode, payload)
		if entry, err := r.cache.Get(ctx, key); err == nil {
			r.logger.Debug("缓存命中",
				zap.Int("index", task.Index),
				zap.String("image", filepath.Base(task.SourcePath)),
			)
			return r.successOutcome(task, start, 0, r.filterDetections(entry.Detections))
		}
	}

	// 已发出的请求不随取消中断，收尾由 HTTP 超时兜底；
	// 取消只在重试间隙生效
	callCtx := context.WithoutCancel(ctx)
	dets, attempts, err := retry.DoWithResultTyped(r.retryer, ctx,
		func() ([]types.Detection, error) {
			return call(callCtx)
		})
	if err != nil {
		return r.failedOutcome(task, start, attempts, err)
	}

	if r.cache != nil {
		entry := &cache.Entry{
			Detections: dets,
			Mode:       cacheMode,
			Source:     filepath.Base(task.SourcePath),
		}
		if cerr := r.cache.Set(ctx, key, entry); cerr != nil {
			r.logger.Warn("缓存写入失败", zap.Error(cerr))
		}
	}

	return r.successOutcome(task, start, attempts, r.filterDetections(dets))
}

// ===== 🔧 辅助函数 =====

// filterDetections 丢弃低于置信度阈值的检测
func (r *Runner) filterDetections(dets []types.Detection) []types.Detection {
	if r.cfg.MinConfidence <= 0 {
		return dets
	}
	kept := make([]types.Detection, 0, len(dets))
	for _, det := range dets {
		if det.Confidence >= r.cfg.MinConfidence {
			kept = append(kept, det)
		}
	}
	return kept
}

func (r *Runner) successOutcome(task types.ImageTask, start time.Time, attempts int, dets []types.Detection) types.TaskOutcome {
	return types.TaskOutcome{
		Index:      task.Index,
		SourceName: filepath.Base(task.SourcePath),
		Success:    true,
		Detections: dets,
		Attempts:   attempts,
		Elapsed:    time.Since(start),
	}
}

func (r *Runner) failedOutcome(task types.ImageTask, start time.Time, attempts int, err error) types.TaskOutcome {
	r.logger.Warn("任务失败",
		zap.Int("index", task.Index),
		zap.String("image", filepath.Base(task.SourcePath)),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	return types.TaskOutcome{
		Index:      task.Index,
		SourceName: filepath.Base(task.SourcePath),
		Success:    false,
		Error:      err.Error(),
		Attempts:   attempts,
		Elapsed:    time.Since(start),
	}
}

func (r *Runner) canceledOutcome(task types.ImageTask, cause error) types.TaskOutcome {
	return types.TaskOutcome{
		Index:      task.Index,
		SourceName: filepath.Base(task.SourcePath),
		Success:    false,
		Error:      fmt.Sprintf("canceled before start: %v", cause),
	}
}

func inferEndpoint(mode string) string {
	if mode == ModeTensor {
		return "/inference-tensor"
	}
	return "/inference-jpeg"
}
