// =============================================================================
// Package detectflow — One-Line Batch Inference
// =============================================================================
// Provides a top-level convenience entry point for talking to a detectx
// inference service with minimal boilerplate. Delegates to client and batch
// internally.
//
// Usage:
//
//	import "github.com/BaSui01/detectflow"
//
//	c, err := detectflow.New(detectflow.WithHost("192.168.1.90"))
//	report, err := detectflow.RunBatch(ctx, "./images",
//	    detectflow.WithHost("192.168.1.90"),
//	    detectflow.WithCredentials("root", "secret"),
//	    detectflow.WithMode("tensor"),
//	)
//
// =============================================================================
package detectflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/detectflow/batch"
	"github.com/BaSui01/detectflow/client"
	"github.com/BaSui01/detectflow/types"
)

// Option configures the client and batch run created by New and RunBatch.
type Option func(*options)

type options struct {
	host          string
	scheme        string
	basePath      string
	username      string
	password      string
	timeout       time.Duration
	maxConns      int
	tlsSkipVerify bool
	logger        *zap.Logger

	// Batch-only fields — ignored by New.
	mode          string
	workers       int
	minConfidence float64
	extensions    []string
	progress      batch.Progress
}

// WithHost sets the inference service host, optionally with a port.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithScheme selects http or https. Defaults to http.
func WithScheme(scheme string) Option {
	return func(o *options) { o.scheme = scheme }
}

// WithBasePath overrides the service base path. Defaults to /local/detectx.
func WithBasePath(path string) Option {
	return func(o *options) { o.basePath = path }
}

// WithCredentials enables digest authentication.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithTimeout sets the per-request timeout. Defaults to 30s.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithMaxConns bounds the HTTP connection pool.
func WithMaxConns(n int) Option {
	return func(o *options) { o.maxConns = n }
}

// WithTLSSkipVerify disables certificate verification over https,
// for cameras that ship self-signed certificates.
func WithTLSSkipVerify() Option {
	return func(o *options) { o.tlsSkipVerify = true }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMode selects the batch encoding mode, jpeg or tensor. Defaults to jpeg.
func WithMode(mode string) Option {
	return func(o *options) { o.mode = mode }
}

// WithWorkers sets the batch worker count. Defaults to 3, matching the
// service admission queue depth.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMinConfidence drops detections below the threshold.
func WithMinConfidence(threshold float64) Option {
	return func(o *options) { o.minConfidence = threshold }
}

// WithExtensions overrides the image extensions picked up by RunBatch.
func WithExtensions(exts ...string) Option {
	return func(o *options) { o.extensions = exts }
}

// WithProgress attaches a batch progress callback.
func WithProgress(fn batch.Progress) Option {
	return func(o *options) { o.progress = fn }
}

// New creates a ready-to-use service client.
// At minimum, a host must be specified via WithHost.
func New(opts ...Option) (*client.Client, error) {
	o := resolve(opts)
	if o.host == "" {
		return nil, fmt.Errorf("host is required: use WithHost")
	}

	cfg := client.Config{
		Host:          o.host,
		Scheme:        o.scheme,
		BasePath:      o.basePath,
		Username:      o.username,
		Password:      o.password,
		Timeout:       o.timeout,
		MaxConns:      o.maxConns,
		TLSSkipVerify: o.tlsSkipVerify,
	}
	return client.New(cfg, o.logger), nil
}

// RunBatch scans dir for images and runs one batch inference pass with
// defaults resolved from the options. The client lives for the duration of
// the run.
func RunBatch(ctx context.Context, dir string, opts ...Option) (*types.BatchReport, error) {
	o := resolve(opts)

	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	tasks, err := batch.Scan(dir, o.extensions)
	if err != nil {
		return nil, err
	}

	cfg := batch.DefaultConfig()
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	cfg.MinConfidence = o.minConfidence

	runnerOpts := []batch.Option{}
	if o.progress != nil {
		runnerOpts = append(runnerOpts, batch.WithProgress(o.progress))
	}

	runner := batch.NewRunner(c, cfg, o.logger, runnerOpts...)
	return runner.Run(ctx, tasks)
}

func resolve(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
