package concurrent

import (
	"hash/maphash"
	"sync/atomic"

	"github.com/tangzhangming/gfront/internal/ref"
)

// ============================================================================
// ConcurrentDoubleKeyMap - 两个强引用键
// ============================================================================

type pairEntry[K1, K2 comparable, V any] struct {
	h   uint32
	k1  K1
	k2  K2
	val atomic.Pointer[V]
}

func (e *pairEntry[K1, K2, V]) hash() uint32 { return e.h }
func (e *pairEntry[K1, K2, V]) valid() bool  { return true }
func (e *pairEntry[K1, K2, V]) release()     {}

// ConcurrentDoubleKeyMap 以 (k1, k2) 为键的分段并发 map
type ConcurrentDoubleKeyMap[K1, K2 comparable, V any] struct {
	core[*pairEntry[K1, K2, V]]
	seed maphash.Seed
}

// NewConcurrentDoubleKeyMap 创建 ConcurrentDoubleKeyMap
func NewConcurrentDoubleKeyMap[K1, K2 comparable, V any](opts ...Option) *ConcurrentDoubleKeyMap[K1, K2, V] {
	return &ConcurrentDoubleKeyMap[K1, K2, V]{
		core: newCore[*pairEntry[K1, K2, V]](opts),
		seed: maphash.MakeSeed(),
	}
}

func (m *ConcurrentDoubleKeyMap[K1, K2, V]) lookup(k1 K1, k2 K2) (uint32, *segment[*pairEntry[K1, K2, V]], func(*pairEntry[K1, K2, V]) bool) {
	h := hash2(m.seed, k1, k2)
	return h, m.segmentFor(h), func(e *pairEntry[K1, K2, V]) bool {
		return e.k1 == k1 && e.k2 == k2
	}
}

func newPairEntry[K1, K2 comparable, V any](h uint32, k1 K1, k2 K2, v V) *pairEntry[K1, K2, V] {
	e := &pairEntry[K1, K2, V]{h: h, k1: k1, k2: k2}
	e.val.Store(&v)
	return e
}

// Get 无锁读取
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) Get(k1 K1, k2 K2) (V, bool) {
	h, s, match := m.lookup(k1, k2)
	if e, ok := s.find(h, match); ok {
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Put 插入或更新
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) Put(k1 K1, k2 K2, v V) {
	h, s, match := m.lookup(k1, k2)
	s.put(h, match, newPairEntry(h, k1, k2, v), func(e *pairEntry[K1, K2, V]) {
		e.val.Store(&v)
	})
}

// GetOrPut 键不存在时插入 v，返回最终的值
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) GetOrPut(k1 K1, k2 K2, v V) (actual V, loaded bool) {
	h, s, match := m.lookup(k1, k2)
	if e, ok := s.find(h, match); ok {
		return *e.val.Load(), true
	}
	e, loaded := s.put(h, match, newPairEntry(h, k1, k2, v), nil)
	return *e.val.Load(), loaded
}

// Remove 删除键
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) Remove(k1 K1, k2 K2) (V, bool) {
	h, s, match := m.lookup(k1, k2)
	if e, ok := s.remove(h, match); ok {
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Size 有效条目数
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) Size() int {
	return m.size()
}

// FullSize 槽位数
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) FullSize() int {
	return m.fullSize()
}

// Range 遍历条目，fn 返回 false 时停止
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) Range(fn func(K1, K2, V) bool) {
	m.each(func(e *pairEntry[K1, K2, V]) bool {
		return fn(e.k1, e.k2, *e.val.Load())
	})
}

// Clear 删除所有条目
func (m *ConcurrentDoubleKeyMap[K1, K2, V]) Clear() {
	m.clear()
}

// ============================================================================
// ManagedDoubleKeyMap - 两个引用键
// ============================================================================
//
// 两个键都通过引用持有，只有两个键都存活时条目才有效；
// 任意一个键被回收都会删除整个条目，所以缓存不会让任何一个键常驻内存。
//
// ============================================================================

type managedPairEntry[K1, K2, V any] struct {
	h   uint32
	k1  *ref.Reference[K1]
	k2  *ref.Reference[K2]
	val atomic.Pointer[V]
	seg *segment[*managedPairEntry[K1, K2, V]]
}

func (e *managedPairEntry[K1, K2, V]) hash() uint32 { return e.h }

func (e *managedPairEntry[K1, K2, V]) valid() bool {
	return e.k1.Valid() && e.k2.Valid()
}

func (e *managedPairEntry[K1, K2, V]) release() {
	e.k1.Clear()
	e.k2.Clear()
}

// Finalize 任意一个键被回收后调用，删除条目并放弃另一个键的通知
func (e *managedPairEntry[K1, K2, V]) Finalize() {
	e.seg.removeEntry(e.h, e)
	e.release()
}

func (e *managedPairEntry[K1, K2, V]) touch() {
	if e.k1.Type() == ref.Soft {
		e.k1.Get()
		e.k2.Get()
	}
}

// ManagedDoubleKeyMap 两个键都由引用管理器管理的并发 map
type ManagedDoubleKeyMap[K1, K2, V any] struct {
	core[*managedPairEntry[K1, K2, V]]
	seed   maphash.Seed
	bundle *ref.Bundle
}

// NewManagedDoubleKeyMap 创建 ManagedDoubleKeyMap，bundle 为 nil 时返回 ErrNilBundle
func NewManagedDoubleKeyMap[K1, K2, V any](bundle *ref.Bundle, opts ...Option) (*ManagedDoubleKeyMap[K1, K2, V], error) {
	if bundle == nil {
		return nil, ErrNilBundle
	}
	return &ManagedDoubleKeyMap[K1, K2, V]{
		core:   newCore[*managedPairEntry[K1, K2, V]](opts),
		seed:   maphash.MakeSeed(),
		bundle: bundle,
	}, nil
}

// Bundle 返回键使用的引用 Bundle
func (m *ManagedDoubleKeyMap[K1, K2, V]) Bundle() *ref.Bundle {
	return m.bundle
}

func (m *ManagedDoubleKeyMap[K1, K2, V]) lookup(k1 *K1, k2 *K2) (uint32, *segment[*managedPairEntry[K1, K2, V]], func(*managedPairEntry[K1, K2, V]) bool) {
	if k1 == nil || k2 == nil {
		panic("concurrent: nil key")
	}
	h := hash2(m.seed, k1, k2)
	return h, m.segmentFor(h), func(e *managedPairEntry[K1, K2, V]) bool {
		return e.k1.Is(k1) && e.k2.Is(k2)
	}
}

func (m *ManagedDoubleKeyMap[K1, K2, V]) newEntry(h uint32, s *segment[*managedPairEntry[K1, K2, V]], k1 *K1, k2 *K2, v V) *managedPairEntry[K1, K2, V] {
	e := &managedPairEntry[K1, K2, V]{h: h, seg: s}
	e.val.Store(&v)
	e.k1 = ref.NewReference(m.bundle, k1, e)
	e.k2 = ref.NewReference(m.bundle, k2, e)
	return e
}

// Get 无锁读取
func (m *ManagedDoubleKeyMap[K1, K2, V]) Get(k1 *K1, k2 *K2) (V, bool) {
	h, s, match := m.lookup(k1, k2)
	if e, ok := s.find(h, match); ok {
		e.touch()
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Put 插入或更新
func (m *ManagedDoubleKeyMap[K1, K2, V]) Put(k1 *K1, k2 *K2, v V) {
	h, s, match := m.lookup(k1, k2)
	fresh := m.newEntry(h, s, k1, k2, v)
	if _, found := s.put(h, match, fresh, func(e *managedPairEntry[K1, K2, V]) {
		e.val.Store(&v)
		e.touch()
	}); found {
		fresh.release()
	}
}

// GetOrPut 键不存在时插入 v，返回最终的值
func (m *ManagedDoubleKeyMap[K1, K2, V]) GetOrPut(k1 *K1, k2 *K2, v V) (actual V, loaded bool) {
	h, s, match := m.lookup(k1, k2)
	if e, ok := s.find(h, match); ok {
		e.touch()
		return *e.val.Load(), true
	}
	fresh := m.newEntry(h, s, k1, k2, v)
	e, loaded := s.put(h, match, fresh, nil)
	if loaded {
		fresh.release()
		e.touch()
	}
	return *e.val.Load(), loaded
}

// Remove 删除键
func (m *ManagedDoubleKeyMap[K1, K2, V]) Remove(k1 *K1, k2 *K2) (V, bool) {
	h, s, match := m.lookup(k1, k2)
	if e, ok := s.remove(h, match); ok {
		e.release()
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// RemoveIf 当前值满足 cond 时删除键，检查和删除在同一次持锁中完成
func (m *ManagedDoubleKeyMap[K1, K2, V]) RemoveIf(k1 *K1, k2 *K2, cond func(V) bool) bool {
	h, s, match := m.lookup(k1, k2)
	e, ok := s.remove(h, func(e *managedPairEntry[K1, K2, V]) bool {
		return match(e) && cond(*e.val.Load())
	})
	if ok {
		e.release()
	}
	return ok
}

// Size 有效条目数
func (m *ManagedDoubleKeyMap[K1, K2, V]) Size() int {
	return m.size()
}

// FullSize 槽位数，包括键已回收但还没被删除的条目
func (m *ManagedDoubleKeyMap[K1, K2, V]) FullSize() int {
	return m.fullSize()
}

// Range 遍历有效条目，虚引用的键以 nil 传给 fn
func (m *ManagedDoubleKeyMap[K1, K2, V]) Range(fn func(*K1, *K2, V) bool) {
	phantom := m.bundle.Type() == ref.Phantom
	m.each(func(e *managedPairEntry[K1, K2, V]) bool {
		k1, k2 := e.k1.Get(), e.k2.Get()
		if !phantom && (k1 == nil || k2 == nil) {
			return true
		}
		return fn(k1, k2, *e.val.Load())
	})
}

// Clear 删除所有条目
func (m *ManagedDoubleKeyMap[K1, K2, V]) Clear() {
	m.clear()
}
