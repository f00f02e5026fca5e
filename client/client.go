package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/icholy/digest"
	"go.uber.org/zap"

	"github.com/BaSui01/detectflow/internal/ctxkeys"
	"github.com/BaSui01/detectflow/internal/metrics"
	"github.com/BaSui01/detectflow/internal/tlsutil"
	"github.com/BaSui01/detectflow/preprocess"
	"github.com/BaSui01/detectflow/types"
)

// 推理端点路径，同时用作日志与指标的 endpoint 标签
const (
	endpointCapabilities = "/capabilities"
	endpointHealth       = "/health"
	endpointInferJPEG    = "/inference-jpeg"
	endpointInferTensor  = "/inference-tensor"
)

// MaxImageBytes 是服务端接受的最大上传体积，超出的载荷本地拒绝。
const MaxImageBytes = 10 << 20

// Config 客户端配置
type Config struct {
	Host          string        // 服务主机，可带端口，如 "192.168.1.90"
	Scheme        string        // http 或 https，默认 http
	BasePath      string        // 服务基础路径，默认 /local/detectx
	Username      string        // Digest 认证用户名，留空则匿名
	Password      string        // Digest 认证密码
	Timeout       time.Duration // 单请求超时，默认 30s
	MaxConns      int           // 连接池上限，应不小于批处理工作者数量
	TLSSkipVerify bool          // 跳过证书校验，用于自签名证书的摄像机
	TLSConfig     *tls.Config   // 显式 TLS 配置，非空时覆盖 TLSSkipVerify
}

// Client 是 detectx 服务的协议适配器。
// 一个 Client 持有一个共享的 HTTP 会话，传输层支持并发复用，
// 多个批处理工作者可以安全共享同一实例。
type Client struct {
	cfg       Config
	http      *http.Client
	transport *http.Transport
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option 配置 Client 的可选项
type Option func(*Client)

// WithCollector 挂接请求级指标采集
func WithCollector(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.collector = collector
	}
}

// New 创建客户端。
// 凭据存在时装配 Digest 质询-响应传输层，否则直连。
func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/local/detectx"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = tlsutil.ClientTLS(cfg.TLSSkipVerify)
	}

	transport := &http.Transport{
		TLSClientConfig:     tlsCfg,
		MaxIdleConns:        cfg.MaxConns,
		MaxIdleConnsPerHost: cfg.MaxConns,
		MaxConnsPerHost:     cfg.MaxConns,
		IdleConnTimeout:     90 * time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.Username != "" {
		rt = &digest.Transport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		}
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: rt,
		},
		transport: transport,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close 释放空闲连接。会话在一次批处理运行内共享，运行结束时关闭。
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// url 拼接端点地址；index 非负时作为查询参数附加
func (c *Client) url(endpoint string, index int) string {
	u := fmt.Sprintf("%s://%s%s%s", c.cfg.Scheme, c.cfg.Host, c.cfg.BasePath, endpoint)
	if index >= 0 {
		u = fmt.Sprintf("%s?index=%d", u, index)
	}
	return u
}

// Capabilities 获取服务能力快照，非 200 视为 SERVICE_ERROR。
func (c *Client) Capabilities(ctx context.Context) (*types.ServiceCapabilities, error) {
	var caps types.ServiceCapabilities
	if err := c.get(ctx, endpointCapabilities, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// Health 获取服务健康快照，非 200 视为 SERVICE_ERROR。
func (c *Client) Health(ctx context.Context) (*types.ServiceHealth, error) {
	var health types.ServiceHealth
	if err := c.get(ctx, endpointHealth, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// InferJPEG 提交 JPEG 字节做一次推理。
// index 非负时回显在检测结果中，用于批处理关联。
func (c *Client) InferJPEG(ctx context.Context, data []byte, index int) ([]types.Detection, error) {
	if len(data) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "empty jpeg payload").
			WithEndpoint(endpointInferJPEG)
	}
	if len(data) > MaxImageBytes {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("jpeg payload is %d bytes, service limit is %d", len(data), MaxImageBytes)).
			WithEndpoint(endpointInferJPEG)
	}
	return c.infer(ctx, endpointInferJPEG, "image/jpeg", data, index)
}

// InferTensor 提交预处理张量做一次推理。
// 张量先做本地校验（3 通道、8 位样本、长度吻合），违规不发起网络调用。
func (c *Client) InferTensor(ctx context.Context, tensor *preprocess.Tensor, index int) ([]types.Detection, error) {
	if err := tensor.Validate(); err != nil {
		var e *types.Error
		if errors.As(err, &e) {
			return nil, e.WithEndpoint(endpointInferTensor)
		}
		return nil, err
	}
	return c.infer(ctx, endpointInferTensor, "application/octet-stream", tensor.Pix, index)
}

// get 执行一次 GET 并解码 JSON 响应体
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint, -1), nil)
	if err != nil {
		return types.NewError(types.ErrConnection, err.Error()).
			WithEndpoint(endpoint).WithCause(err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		return types.NewError(types.ErrConnection, err.Error()).
			WithEndpoint(endpoint).WithCause(err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return types.NewError(types.ErrServiceError, readErrMsg(resp.Body)).
			WithHTTPStatus(resp.StatusCode).WithEndpoint(endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrDecode, "malformed response body").
			WithEndpoint(endpoint).WithCause(err)
	}
	return nil
}

// infer 执行一次推理 POST，按状态码驱动结果解释
func (c *Client) infer(ctx context.Context, endpoint, contentType string, payload []byte, index int) ([]types.Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint, index), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrConnection, err.Error()).
			WithEndpoint(endpoint).WithCause(err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(endpoint, 0, elapsed)
		c.logger.Warn("推理请求失败",
			zap.String("endpoint", endpoint),
			zap.Int("index", index),
			runIDField(ctx),
			zap.Error(err),
		)
		return nil, types.NewError(types.ErrConnection, err.Error()).
			WithEndpoint(endpoint).WithCause(err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, elapsed)

	switch resp.StatusCode {
	case http.StatusOK:
		dets, err := decodeDetections(resp.Body, endpoint)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("推理完成",
			zap.String("endpoint", endpoint),
			zap.Int("index", index),
			zap.Int("detections", len(dets)),
			zap.Duration("elapsed", elapsed),
			runIDField(ctx),
		)
		return dets, nil

	case http.StatusNoContent:
		// 无检测结果不是错误
		return []types.Detection{}, nil

	default:
		return nil, mapInferError(resp.StatusCode, readErrMsg(resp.Body), endpoint)
	}
}

// mapInferError 把推理端点的异常状态映射为结构化错误。
// busy 判定只看 503 状态码；其余状态一律致命。
func mapInferError(status int, msg, endpoint string) *types.Error {
	switch status {
	case http.StatusServiceUnavailable:
		if msg == "" {
			msg = "server busy - queue full"
		}
		return types.NewError(types.ErrServiceBusy, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithEndpoint(endpoint)
	default:
		return types.NewError(types.ErrServiceError, msg).
			WithHTTPStatus(status).
			WithEndpoint(endpoint)
	}
}

// decodeDetections 解码 200 响应体中的 detections 数组
func decodeDetections(body io.Reader, endpoint string) ([]types.Detection, error) {
	var payload struct {
		Detections []types.Detection `json:"detections"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		var e *types.Error
		if errors.As(err, &e) {
			return nil, e.WithEndpoint(endpoint)
		}
		return nil, types.NewError(types.ErrDecode, "malformed detections payload").
			WithEndpoint(endpoint).WithCause(err)
	}
	if payload.Detections == nil {
		return nil, types.NewError(types.ErrDecode, `response missing "detections"`).
			WithEndpoint(endpoint)
	}
	return payload.Detections, nil
}

// readErrMsg 提取错误响应体的可读摘要
func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 512))
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return string(bytes.TrimSpace(data))
}

// observe 上报请求级指标，未挂接采集器时为空操作
func (c *Client) observe(endpoint string, status int, elapsed time.Duration) {
	if c.collector != nil {
		c.collector.RecordRequest(endpoint, status, elapsed)
	}
}

// runIDField 提取 context 中的批处理运行 ID 作为日志字段
func runIDField(ctx context.Context) zap.Field {
	if id, ok := ctxkeys.RunID(ctx); ok {
		return zap.String("run_id", id)
	}
	return zap.Skip()
}
