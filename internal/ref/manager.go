package ref

import (
	"context"
	"fmt"
	"sync"
	"time"
	"weak"

	uatomic "go.uber.org/atomic"
	"go.uber.org/zap"
)

// ============================================================================
// 排空策略
// ============================================================================

// Policy 队列排空策略
type Policy int32

const (
	// Threaded 后台 goroutine 阻塞等待队列，超时后顺便清理软引用
	Threaded Policy = iota
	// CallBacked 每登记一个新引用就同步排空一次
	CallBacked
	// Idling 只有调用 Drain 时才排空
	Idling
	// ThresholdedIdling 先空闲，登记数超过阈值后切换为 CallBacked
	ThresholdedIdling
)

var policyNames = [...]string{
	Threaded:          "threaded",
	CallBacked:        "callback",
	Idling:            "idling",
	ThresholdedIdling: "thresholded",
}

func (p Policy) String() string {
	if p >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy 解析配置中的策略名
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if name == s {
			return Policy(p), nil
		}
	}
	return 0, fmt.Errorf("ref: unknown policy %q", s)
}

// ============================================================================
// 配置
// ============================================================================

const (
	// DefaultThreshold ThresholdedIdling 切换前允许的登记数
	DefaultThreshold = 500

	// DefaultPollInterval 后台 goroutine 单次等待的上限
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultMsPerMB 每 MB 空闲堆允许软引用空闲的毫秒数
	DefaultMsPerMB = 1000
)

// ManagerConfig 引用管理器配置
type ManagerConfig struct {
	// Policy 排空策略
	Policy Policy

	// Threshold ThresholdedIdling 的切换阈值
	Threshold int64

	// PollInterval 后台等待队列的超时时间
	PollInterval time.Duration

	// MsPerMB 软引用 LRU 时钟参数
	MsPerMB int64

	// Logger 日志，nil 表示不输出
	Logger *zap.Logger

	// FreeHeap 返回当前空闲堆字节数，nil 使用 FreeHeapBytes
	FreeHeap func() uint64
}

// DefaultManagerConfig 默认配置
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Policy:       ThresholdedIdling,
		Threshold:    DefaultThreshold,
		PollInterval: DefaultPollInterval,
		MsPerMB:      DefaultMsPerMB,
	}
}

// ============================================================================
// Manager
// ============================================================================

// softRef 由 LRU 时钟管理的软引用
type softRef interface {
	unpin(now int64, maxIdle time.Duration) bool
	pinned() bool
}

// Manager 排空引用队列，对每个被回收的引用调用一次 Finalize
type Manager struct {
	config ManagerConfig
	logger *zap.Logger
	queue  *Queue

	// ========== 策略与统计 ==========
	policy        *uatomic.Int32
	registrations *uatomic.Int64
	finalized     *uatomic.Int64
	unpinned      *uatomic.Int64

	// ========== 软引用 ==========
	softMu sync.Mutex
	softs  map[softRef]struct{}

	// ========== 后台 goroutine ==========
	bgMu      sync.Mutex
	bgCancel  context.CancelFunc
	bgDone    chan struct{}
	bgRunning *uatomic.Bool
}

// Stats 管理器统计信息
type Stats struct {
	Policy        Policy
	Registrations int64
	Finalized     int64
	Pending       int
	SoftRefs      int
	SoftPinned    int
	Unpinned      int64
}

// NewManager 创建引用管理器
//
// Threaded 策略会立即启动后台 goroutine。goroutine 只持有管理器的弱引用，
// 管理器不再被引用后，它在下一次等待超时时自行退出；Stop 可以提前结束它。
func NewManager(config ManagerConfig) *Manager {
	defaults := DefaultManagerConfig()
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MsPerMB <= 0 {
		config.MsPerMB = defaults.MsPerMB
	}
	if config.FreeHeap == nil {
		config.FreeHeap = FreeHeapBytes
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:        config,
		logger:        logger,
		queue:         NewQueue(),
		policy:        uatomic.NewInt32(int32(config.Policy)),
		registrations: uatomic.NewInt64(0),
		finalized:     uatomic.NewInt64(0),
		unpinned:      uatomic.NewInt64(0),
		softs:         make(map[softRef]struct{}),
		bgRunning:     uatomic.NewBool(false),
	}

	if config.Policy == Threaded {
		m.Start(context.Background())
	}
	return m
}

// Policy 返回当前生效的策略
func (m *Manager) Policy() Policy {
	return Policy(m.policy.Load())
}

// Queue 返回引用队列
func (m *Manager) Queue() *Queue {
	return m.queue
}

// Running 后台 goroutine 是否在运行
func (m *Manager) Running() bool {
	return m.bgRunning.Load()
}

// ----------------------------------------------------------------------------
// 后台 goroutine
// ----------------------------------------------------------------------------

// Start 启动后台排空 goroutine
//
// ctx 结束、调用 Stop 或管理器被回收时退出。
func (m *Manager) Start(ctx context.Context) {
	m.bgMu.Lock()
	defer m.bgMu.Unlock()

	if !m.bgRunning.CAS(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.bgCancel = cancel
	m.bgDone = make(chan struct{})

	p := &poller{
		manager:  weak.Make(m),
		queue:    m.queue,
		interval: m.config.PollInterval,
		logger:   m.logger,
		running:  m.bgRunning,
	}
	go p.loop(ctx, m.bgDone)
}

// Stop 停止后台 goroutine 并等待它退出
//
// 停止后队列不再被自动排空，过期条目会积累，但 map 读取时总会重新校验。
func (m *Manager) Stop() {
	m.bgMu.Lock()
	cancel, done := m.bgCancel, m.bgDone
	m.bgCancel, m.bgDone = nil, nil
	m.bgMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// poller 后台排空 goroutine 的状态
//
// 不持有 Manager 的强引用，否则 goroutine 会让管理器永远存活。
type poller struct {
	manager  weak.Pointer[Manager]
	queue    *Queue
	interval time.Duration
	logger   *zap.Logger
	running  *uatomic.Bool
}

func (p *poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.running.Store(false)

	p.logger.Debug("reference manager started", zap.Duration("poll_interval", p.interval))

	for {
		r := p.queue.Remove(ctx, p.interval)
		if !p.step(r) {
			p.logger.Debug("reference manager unreachable, poller exiting")
			return
		}
		if ctx.Err() != nil {
			p.logger.Debug("reference manager stopped", zap.Int("pending", p.queue.Len()))
			return
		}
	}
}

// step 处理一次等待的结果：取到引用就终结它，超时则清理软引用
//
// 管理器已被回收时返回 false。强引用只在本次调用内有效。
func (p *poller) step(r Finalizable) bool {
	m := p.manager.Value()
	if m == nil {
		return false
	}
	if r != nil {
		m.finalize(r)
	} else {
		m.SweepSoft()
	}
	return true
}

// ----------------------------------------------------------------------------
// 排空
// ----------------------------------------------------------------------------

func (m *Manager) enqueue(r Finalizable) {
	m.queue.enqueue(r)
}

// registered 每登记一个新引用调用一次
func (m *Manager) registered() {
	n := m.registrations.Inc()

	switch m.Policy() {
	case CallBacked:
		m.Drain()
	case ThresholdedIdling:
		if n > m.config.Threshold && m.policy.CAS(int32(ThresholdedIdling), int32(CallBacked)) {
			m.logger.Info("reference manager switched to callback draining",
				zap.Int64("registrations", n),
				zap.Int64("threshold", m.config.Threshold))
			m.Drain()
		}
	}
}

// Drain 同步排空队列并清理空闲的软引用，返回终结的引用数
func (m *Manager) Drain() int {
	n := 0
	for r := m.queue.Poll(); r != nil; r = m.queue.Poll() {
		m.finalize(r)
		n++
	}
	m.SweepSoft()
	if n > 0 {
		m.logger.Debug("reference queue drained", zap.Int("finalized", n))
	}
	return n
}

func (m *Manager) finalize(r Finalizable) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("finalizer panicked", zap.Any("panic", p))
		}
	}()
	r.Finalize()
	m.finalized.Inc()
}

// ----------------------------------------------------------------------------
// 软引用 LRU 时钟
// ----------------------------------------------------------------------------

func (m *Manager) trackSoft(s softRef) {
	m.softMu.Lock()
	m.softs[s] = struct{}{}
	m.softMu.Unlock()
}

func (m *Manager) untrackSoft(s softRef) {
	m.softMu.Lock()
	delete(m.softs, s)
	m.softMu.Unlock()
}

// SweepSoft 释放空闲时间超过 空闲堆MB × MsPerMB 毫秒 的软引用
//
// 返回本次释放的数量。释放后对象只剩弱引用，下一次 GC 即可回收。
func (m *Manager) SweepSoft() int {
	maxIdle := softMaxIdle(m.config.FreeHeap(), m.config.MsPerMB)
	now := time.Now().UnixNano()

	m.softMu.Lock()
	n := 0
	for s := range m.softs {
		if s.unpin(now, maxIdle) {
			n++
		}
	}
	m.softMu.Unlock()

	if n > 0 {
		m.unpinned.Add(int64(n))
		m.logger.Debug("soft references released",
			zap.Int("count", n),
			zap.Duration("max_idle", maxIdle))
	}
	return n
}

// Stats 返回统计信息
func (m *Manager) Stats() Stats {
	m.softMu.Lock()
	soft, pinned := len(m.softs), 0
	for s := range m.softs {
		if s.pinned() {
			pinned++
		}
	}
	m.softMu.Unlock()

	return Stats{
		Policy:        m.Policy(),
		Registrations: m.registrations.Load(),
		Finalized:     m.finalized.Load(),
		Pending:       m.queue.Len(),
		SoftRefs:      soft,
		SoftPinned:    pinned,
		Unpinned:      m.unpinned.Load(),
	}
}
