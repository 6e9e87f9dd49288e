// Package dispatch 实现按 (接收者类型, 参数类型) 缓存的方法分派
//
// 共享的解析结果放在 ManagedDoubleKeyMap 中，两个类型都只通过引用持有，
// 类型被回收后对应条目自动删除。每个调用点另有一个小的内联缓存，
// 命中时不需要访问共享表。
package dispatch

import (
	"errors"
	"sync"
	"weak"

	uatomic "go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tangzhangming/gfront/internal/concurrent"
	"github.com/tangzhangming/gfront/internal/ref"
)

// ErrNilType 接收者或参数类型为 nil
var ErrNilType = errors.New("dispatch: nil type")

// Resolver 解析 (接收者类型, 参数类型) 对应的目标
type Resolver[R, A, M any] func(recv *R, arg *A) (M, error)

// resolution 共享表中的值，同一个类型对只解析一次
type resolution[M any] struct {
	once   sync.Once
	target M
	err    error
}

// ============================================================================
// 分派缓存
// ============================================================================

// Cache 分派缓存
type Cache[R, A, M any] struct {
	table  *concurrent.ManagedDoubleKeyMap[R, A, *resolution[M]]
	sites  *concurrent.ConcurrentMap[string, *CallSite[R, A, M]]
	logger *zap.Logger

	resolutions *uatomic.Int64
	failures    *uatomic.Int64
	shared      *uatomic.Int64
}

// NewCache 创建分派缓存，bundle 决定类型以何种引用持有
func NewCache[R, A, M any](bundle *ref.Bundle, logger *zap.Logger, opts ...concurrent.Option) (*Cache[R, A, M], error) {
	table, err := concurrent.NewManagedDoubleKeyMap[R, A, *resolution[M]](bundle, opts...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[R, A, M]{
		table:       table,
		sites:       concurrent.NewConcurrentMap[string, *CallSite[R, A, M]](),
		logger:      logger,
		resolutions: uatomic.NewInt64(0),
		failures:    uatomic.NewInt64(0),
		shared:      uatomic.NewInt64(0),
	}, nil
}

// Lookup 查找共享表，未命中时调用 resolve
//
// 并发查找同一个类型对时 resolve 最多执行一次。解析失败不缓存，
// 下一次查找会重新解析。
func (c *Cache[R, A, M]) Lookup(recv *R, arg *A, resolve Resolver[R, A, M]) (M, error) {
	var zero M
	if recv == nil || arg == nil {
		return zero, ErrNilType
	}

	res, loaded := c.table.GetOrPut(recv, arg, &resolution[M]{})
	if loaded {
		c.shared.Inc()
	}
	res.once.Do(func() {
		c.resolutions.Inc()
		res.target, res.err = resolve(recv, arg)
	})

	if res.err != nil {
		c.failures.Inc()
		c.logger.Debug("dispatch resolve failed", zap.Error(res.err))
		// 只删除这一次失败的解析，其他 goroutine 可能已经放入新的
		c.table.RemoveIf(recv, arg, func(cur *resolution[M]) bool { return cur == res })
		return zero, res.err
	}
	return res.target, nil
}

// Site 返回名为 name 的调用点，不存在时创建
func (c *Cache[R, A, M]) Site(name string) *CallSite[R, A, M] {
	if s, ok := c.sites.Get(name); ok {
		return s
	}
	s, _ := c.sites.GetOrPut(name, &CallSite[R, A, M]{name: name, cache: c})
	return s
}

// Invalidate 删除接收者类型为 recv 的所有解析结果，并重置所有内联缓存
func (c *Cache[R, A, M]) Invalidate(recv *R) int {
	var stale []*A
	c.table.Range(func(r *R, a *A, _ *resolution[M]) bool {
		if r == recv && a != nil {
			stale = append(stale, a)
		}
		return true
	})
	for _, a := range stale {
		c.table.Remove(recv, a)
	}

	c.sites.Range(func(_ string, s *CallSite[R, A, M]) bool {
		s.Reset()
		return true
	})
	c.logger.Debug("dispatch invalidated", zap.Int("entries", len(stale)))
	return len(stale)
}

// Clear 清空共享表和所有内联缓存
func (c *Cache[R, A, M]) Clear() {
	c.table.Clear()
	c.sites.Range(func(_ string, s *CallSite[R, A, M]) bool {
		s.Reset()
		return true
	})
}

// Size 共享表中的有效条目数
func (c *Cache[R, A, M]) Size() int {
	return c.table.Size()
}

// Bundle 返回类型使用的引用 Bundle
func (c *Cache[R, A, M]) Bundle() *ref.Bundle {
	return c.table.Bundle()
}

// ============================================================================
// 调用点
// ============================================================================

// CallSite 一个调用点，先查内联缓存再查共享表
type CallSite[R, A, M any] struct {
	name  string
	cache *Cache[R, A, M]
	ic    inlineCache[R, A, M]
}

// Name 调用点名称
func (s *CallSite[R, A, M]) Name() string {
	return s.name
}

// Lookup 查找 (recv, arg) 的分派目标
func (s *CallSite[R, A, M]) Lookup(recv *R, arg *A, resolve Resolver[R, A, M]) (M, error) {
	if recv == nil || arg == nil {
		var zero M
		return zero, ErrNilType
	}
	wr, wa := weak.Make(recv), weak.Make(arg)

	s.ic.mu.Lock()
	target, ok := s.ic.lookup(wr, wa)
	s.ic.mu.Unlock()
	if ok {
		return target, nil
	}

	target, err := s.cache.Lookup(recv, arg, resolve)
	if err != nil {
		return target, err
	}

	s.ic.mu.Lock()
	s.ic.update(wr, wa, target)
	s.ic.mu.Unlock()
	return target, nil
}

// State 内联缓存状态
func (s *CallSite[R, A, M]) State() ICState {
	s.ic.mu.Lock()
	defer s.ic.mu.Unlock()
	return s.ic.state
}

// Reset 重置内联缓存
func (s *CallSite[R, A, M]) Reset() {
	s.ic.mu.Lock()
	defer s.ic.mu.Unlock()
	s.ic.reset()
}

// ============================================================================
// 统计
// ============================================================================

// Stats 分派缓存统计
type Stats struct {
	Entries     int   // 共享表有效条目
	Slots       int   // 共享表槽位，包括等待清理的条目
	Resolutions int64 // resolve 调用次数
	Failures    int64 // 解析失败次数
	SharedHits  int64 // 共享表命中次数

	TotalSites       int   // 总调用点数
	TotalHits        int64 // 内联缓存命中次数
	TotalMisses      int64 // 内联缓存未命中次数
	MonomorphicSites int   // 单态调用点数
	PolymorphicSites int   // 多态调用点数
	MegamorphicSites int   // 超多态调用点数
}

// Stats 获取统计信息
func (c *Cache[R, A, M]) Stats() Stats {
	st := Stats{
		Entries:     c.table.Size(),
		Slots:       c.table.FullSize(),
		Resolutions: c.resolutions.Load(),
		Failures:    c.failures.Load(),
		SharedHits:  c.shared.Load(),
	}
	c.sites.Range(func(_ string, s *CallSite[R, A, M]) bool {
		s.ic.mu.Lock()
		st.TotalSites++
		st.TotalHits += s.ic.hits
		st.TotalMisses += s.ic.misses
		switch s.ic.state {
		case ICMonomorphic:
			st.MonomorphicSites++
		case ICPolymorphic:
			st.PolymorphicSites++
		case ICMegamorphic:
			st.MegamorphicSites++
		}
		s.ic.mu.Unlock()
		return true
	})
	return st
}

// HitRate 内联缓存命中率
func (s Stats) HitRate() float64 {
	total := s.TotalHits + s.TotalMisses
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits) / float64(total)
}
