package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/detectflow/types"
)

// Policy 定义重试策略配置。
// 只有 busy 信号触发重试：服务端接纳队列已满属于瞬态拥塞，
// 其余错误一律立即终止。
type Policy struct {
	MaxRetries int                                               // 最大重试次数（0 表示不重试）
	BaseDelay  time.Duration                                     // 退避基础延迟，第 n 次重试等待 BaseDelay*n
	OnRetry    func(attempt int, err error, delay time.Duration) // 重试回调
}

// DefaultPolicy 返回默认重试策略。
// 与服务端接纳队列深度（3）配合：3 次重试，线性递增退避 0.5s/1.0s/1.5s。
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
	}
}

// Retryer 重试器接口。
// Do 系列方法额外返回实际执行的尝试次数，供任务终态记录。
type Retryer interface {
	// Do 执行函数，busy 失败时按策略重试
	Do(ctx context.Context, fn func() error) (int, error)

	// DoWithResult 执行函数并返回结果，busy 失败时按策略重试
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, int, error)
}

// busyRetryer 线性退避的 busy-only 重试器实现
type busyRetryer struct {
	policy *Policy
	logger *zap.Logger
}

// New 创建 busy-only 重试器
func New(policy *Policy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultPolicy()
	}

	// 参数校验
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}

	return &busyRetryer{
		policy: policy,
		logger: logger,
	}
}

// Do 实现 Retryer.Do
func (r *busyRetryer) Do(ctx context.Context, fn func() error) (int, error) {
	_, attempts, err := r.DoWithResult(ctx, func() (any, error) {
		return nil, fn()
	})
	return attempts, err
}

// DoWithResult 实现 Retryer.DoWithResult
// 核心重试逻辑：busy 过滤 + 线性退避 + 取消监听
func (r *busyRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		// 第一次执行不延迟
		if attempt > 0 {
			delay := r.delayFor(attempt)

			r.logger.Debug("服务繁忙，等待重试",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			// 等待延迟，同时监听 context 取消
			select {
			case <-ctx.Done():
				return nil, attempts, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		attempts++
		result, err := fn()

		// 成功，直接返回
		if err == nil {
			if attempt > 0 {
				r.logger.Info("重试成功",
					zap.Int("attempt", attempt),
				)
			}
			return result, attempts, nil
		}
		lastErr = err

		// busy 之外的错误不重试
		if !types.IsBusy(err) {
			r.logger.Debug("错误不可重试",
				zap.Error(err),
			)
			return nil, attempts, err
		}
	}

	// 所有尝试都收到 busy
	r.logger.Warn("重试次数耗尽",
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)

	return nil, attempts, types.NewError(types.ErrMaxRetriesExceeded, "max retries exceeded").
		WithCause(lastErr)
}

// delayFor 计算第 attempt 次重试前的等待时间。
// 沿用服务端既有的线性方案：0.5s、1.0s、1.5s …… 命名为退避，
// 增长并非指数。
func (r *busyRetryer) delayFor(attempt int) time.Duration {
	return r.policy.BaseDelay * time.Duration(attempt)
}
