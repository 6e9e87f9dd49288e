package concurrent

import (
	"hash/maphash"
	"sync/atomic"
)

// ============================================================================
// ConcurrentMap - 强引用键
// ============================================================================

type hardEntry[K comparable, V any] struct {
	h   uint32
	key K
	val atomic.Pointer[V]
}

func newHardEntry[K comparable, V any](h uint32, k K, v V) *hardEntry[K, V] {
	e := &hardEntry[K, V]{h: h, key: k}
	e.val.Store(&v)
	return e
}

func (e *hardEntry[K, V]) hash() uint32 { return e.h }
func (e *hardEntry[K, V]) valid() bool  { return true }
func (e *hardEntry[K, V]) release()     {}

// ConcurrentMap 分段并发 map，键按相等比较
type ConcurrentMap[K comparable, V any] struct {
	core[*hardEntry[K, V]]
	seed maphash.Seed
}

// NewConcurrentMap 创建 ConcurrentMap
func NewConcurrentMap[K comparable, V any](opts ...Option) *ConcurrentMap[K, V] {
	return &ConcurrentMap[K, V]{
		core: newCore[*hardEntry[K, V]](opts),
		seed: maphash.MakeSeed(),
	}
}

func (m *ConcurrentMap[K, V]) lookup(k K) (uint32, *segment[*hardEntry[K, V]], func(*hardEntry[K, V]) bool) {
	h := hash1(m.seed, k)
	return h, m.segmentFor(h), func(e *hardEntry[K, V]) bool { return e.key == k }
}

// Get 无锁读取
func (m *ConcurrentMap[K, V]) Get(k K) (V, bool) {
	h, s, match := m.lookup(k)
	if e, ok := s.find(h, match); ok {
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Put 插入或更新
func (m *ConcurrentMap[K, V]) Put(k K, v V) {
	h, s, match := m.lookup(k)
	s.put(h, match, newHardEntry(h, k, v), func(e *hardEntry[K, V]) {
		e.val.Store(&v)
	})
}

// GetOrPut 键不存在时插入 v
//
// 返回 map 中最终的值，loaded 表示值是已有的。并发调用同一个键时
// 只有一个调用会插入，其余调用都得到它插入的值。
func (m *ConcurrentMap[K, V]) GetOrPut(k K, v V) (actual V, loaded bool) {
	h, s, match := m.lookup(k)
	if e, ok := s.find(h, match); ok {
		return *e.val.Load(), true
	}
	e, loaded := s.put(h, match, newHardEntry(h, k, v), nil)
	return *e.val.Load(), loaded
}

// Remove 删除键，返回被删除的值
func (m *ConcurrentMap[K, V]) Remove(k K) (V, bool) {
	h, s, match := m.lookup(k)
	if e, ok := s.remove(h, match); ok {
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Size 有效条目数
func (m *ConcurrentMap[K, V]) Size() int {
	return m.size()
}

// FullSize 槽位数
func (m *ConcurrentMap[K, V]) FullSize() int {
	return m.fullSize()
}

// Range 遍历条目，fn 返回 false 时停止
//
// 遍历不加锁，期间发生的修改可能看得到也可能看不到。
func (m *ConcurrentMap[K, V]) Range(fn func(K, V) bool) {
	m.each(func(e *hardEntry[K, V]) bool {
		return fn(e.key, *e.val.Load())
	})
}

// Clear 删除所有条目
func (m *ConcurrentMap[K, V]) Clear() {
	m.clear()
}
