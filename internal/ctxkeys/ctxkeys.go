// Package ctxkeys 定义跨包传递的 context 键。
// 批处理运行标识经由 context 流入客户端日志，取消派生的请求上下文
// （context.WithoutCancel）也保留这些值。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const runIDKey contextKey = "run_id"

// WithRunID 设置批处理运行 ID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取批处理运行 ID
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
