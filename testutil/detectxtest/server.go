// Server 是 detectx 推理服务的测试替身。
//
// 支持预设检测结果、按请求顺序的状态码脚本与请求记录，
// 覆盖 busy 重试、204 空结果与错误注入场景。
package detectxtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/detectflow/types"
)

// BasePath 与真实服务一致的路由前缀
const BasePath = "/local/detectx"

// --- 请求记录 ---

// RecordedRequest 记录一次到达替身的请求
type RecordedRequest struct {
	Endpoint    string // 去掉前缀的端点路径，如 /inference-jpeg
	Method      string
	ContentType string
	Index       int    // 未携带 index 参数时为 -1
	Query       string // 原始查询串
	Body        []byte
}

// --- Server 结构 ---

// Server detectx 测试替身。
// 所有配置方法返回自身以支持链式调用，并发安全。
type Server struct {
	mu sync.Mutex

	httpSrv *httptest.Server

	// 响应配置
	capabilities types.ServiceCapabilities
	health       types.ServiceHealth
	detections   []types.Detection
	noContent    bool

	// 状态码脚本：推理请求按顺序消费，耗尽后回到默认行为。
	// 按 index 的脚本优先于全局脚本。
	script      []int
	indexScript map[int][]int

	// 行为控制
	delay time.Duration // 推理响应前的人工延迟

	// 调用记录
	requests      []RecordedRequest
	inflight      int
	maxConcurrent int
}

// New 创建并启动测试替身
func New() *Server {
	s := &Server{
		capabilities: DefaultCapabilities(),
		health:       DefaultHealth(),
		detections:   []types.Detection{},
		indexScript:  map[int][]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(BasePath+"/capabilities", s.handleCapabilities)
	mux.HandleFunc(BasePath+"/health", s.handleHealth)
	mux.HandleFunc(BasePath+"/inference-jpeg", s.handleInference)
	mux.HandleFunc(BasePath+"/inference-tensor", s.handleInference)

	s.httpSrv = httptest.NewServer(mux)
	return s
}

// Close 关闭替身
func (s *Server) Close() {
	s.httpSrv.Close()
}

// URL 返回完整地址，如 http://127.0.0.1:39113
func (s *Server) URL() string {
	return s.httpSrv.URL
}

// Host 返回去掉协议前缀的 host:port，可直接填入客户端配置
func (s *Server) Host() string {
	return strings.TrimPrefix(s.httpSrv.URL, "http://")
}

// --- 配置方法 ---

// WithCapabilities 设置 /capabilities 响应
func (s *Server) WithCapabilities(caps types.ServiceCapabilities) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilities = caps
	return s
}

// WithHealth 设置 /health 响应
func (s *Server) WithHealth(health types.ServiceHealth) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = health
	return s
}

// WithDetections 设置推理成功时返回的检测结果
func (s *Server) WithDetections(dets ...types.Detection) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = dets
	s.noContent = false
	return s
}

// WithNoContent 让推理默认返回 204 空结果
func (s *Server) WithNoContent() *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noContent = true
	return s
}

// ScriptStatuses 预设推理请求的状态码序列，按到达顺序逐个消费。
// 200 返回配置的检测结果，204 返回空，503 返回 busy，
// 其余状态码返回对应错误。序列耗尽后回到默认行为。
func (s *Server) ScriptStatuses(codes ...int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, codes...)
	return s
}

// ScriptIndexStatuses 为指定 index 的推理请求预设状态码序列，
// 优先于全局脚本。多任务批处理测试用它控制单个任务的命运。
func (s *Server) ScriptIndexStatuses(index int, codes ...int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexScript[index] = append(s.indexScript[index], codes...)
	return s
}

// WithDelay 设置推理响应前的人工延迟，用于并发与取消测试
func (s *Server) WithDelay(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// --- 观测方法 ---

// Requests 返回记录的全部请求副本
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// InferenceCalls 返回推理端点收到的请求数
func (s *Server) InferenceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r.Endpoint, "/inference-") {
			n++
		}
	}
	return n
}

// MaxConcurrent 返回推理端点观测到的最大并发请求数
func (s *Server) MaxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxConcurrent
}

// --- 处理器 ---

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)
	s.mu.Lock()
	caps := s.capabilities
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, caps)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)
	s.mu.Lock()
	health := s.health
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleInference(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	index := s.record(r, body)

	s.mu.Lock()
	s.inflight++
	if s.inflight > s.maxConcurrent {
		s.maxConcurrent = s.inflight
	}
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	status, dets, empty := s.nextOutcome(index)
	switch {
	case status == http.StatusOK && empty:
		w.WriteHeader(http.StatusNoContent)
	case status == http.StatusOK:
		writeJSON(w, http.StatusOK, map[string]any{"detections": dets})
	case status == http.StatusNoContent:
		w.WriteHeader(http.StatusNoContent)
	case status == http.StatusServiceUnavailable:
		writeJSON(w, status, map[string]string{"error": "service busy, queue full"})
	default:
		writeJSON(w, status, map[string]string{"error": "inference failed"})
	}
}

// nextOutcome 消费脚本并决定本次响应
func (s *Server) nextOutcome(index int) (status int, dets []types.Detection, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status = http.StatusOK
	if queue, ok := s.indexScript[index]; ok && len(queue) > 0 {
		status = queue[0]
		s.indexScript[index] = queue[1:]
	} else if len(s.script) > 0 {
		status = s.script[0]
		s.script = s.script[1:]
	}

	return status, s.detections, s.noContent
}

// record 记录请求并返回解析出的 index
func (s *Server) record(r *http.Request, body []byte) int {
	index := -1
	if raw := r.URL.Query().Get("index"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			index = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Endpoint:    strings.TrimPrefix(r.URL.Path, BasePath),
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		Index:       index,
		Query:       r.URL.RawQuery,
		Body:        body,
	})
	return index
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- 测试数据工厂 ---

// DefaultCapabilities 返回一份贴近真实服务的能力描述
func DefaultCapabilities() types.ServiceCapabilities {
	return types.ServiceCapabilities{
		Model: types.ModelInfo{
			InputWidth:  640,
			InputHeight: 640,
			Channels:    3,
			AspectRatio: "letterbox",
			InputFormats: []types.InputFormat{
				{
					Endpoint:    BasePath + "/inference-jpeg",
					Method:      "POST",
					ContentType: "image/jpeg",
					Description: "JPEG image, any resolution",
					MaxSizeMB:   10,
				},
				{
					Endpoint:         BasePath + "/inference-tensor",
					Method:           "POST",
					ContentType:      "application/octet-stream",
					Description:      "Raw RGB tensor",
					Format:           "HxWx3 uint8",
					SizeRequirement:  "640x640",
					StrictDimensions: true,
				},
			},
			Classes: []types.ClassInfo{
				{ID: 0, Name: "person"},
				{ID: 1, Name: "car"},
				{ID: 2, Name: "bicycle"},
			},
			MaxQueueSize: 3,
		},
		Server:  "detectx",
		Version: "1.4.0",
	}
}

// DefaultHealth 返回一份空闲状态的健康快照
func DefaultHealth() types.ServiceHealth {
	return types.ServiceHealth{
		Running:   true,
		QueueSize: 0,
		QueueFull: false,
		Statistics: types.HealthStatistics{
			TotalRequests: 42,
			Successful:    40,
			Failed:        1,
			Busy:          1,
		},
		Timing: types.HealthTiming{
			AverageMS: 86.5,
			MinMS:     61.2,
			MaxMS:     212.9,
		},
	}
}

// Detection 构造一条字段齐全的检测记录
func Detection(label string, confidence float64) types.Detection {
	return types.Detection{
		Index:      0,
		Image:      types.ImageSize{Width: 640, Height: 480},
		Label:      label,
		ClassID:    classID(label),
		Confidence: confidence,
		BBoxPixels: types.BBoxPixels{X: 100, Y: 120, W: 80, H: 160},
		BBoxYOLO:   types.BBoxYOLO{CX: 0.218, CY: 0.416, W: 0.125, H: 0.333},
	}
}

func classID(label string) int {
	switch label {
	case "person":
		return 0
	case "car":
		return 1
	case "bicycle":
		return 2
	default:
		return 99
	}
}
