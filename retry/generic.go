package retry

import "context"

// DoWithResultTyped is a type-safe generic wrapper around Retryer.DoWithResult.
// It eliminates the need for type assertions on the return value.
//
// Usage:
//
//	dets, attempts, err := retry.DoWithResultTyped(r, ctx, func() ([]types.Detection, error) {
//	    return client.InferJPEG(ctx, data, idx)
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, int, error) {
	result, attempts, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, attempts, err
	}
	return result.(T), attempts, nil
}
