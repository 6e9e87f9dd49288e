package concurrent

import (
	"hash/maphash"
	"sync/atomic"

	"github.com/tangzhangming/gfront/internal/ref"
)

// ============================================================================
// ManagedMap - 引用键
// ============================================================================
//
// 键是 *K，按对象身份匹配，通过 Bundle 指定的引用类型持有。
// 键被回收后条目立即失效（Get 不再命中，Size 不再计入），
// 引用管理器排空队列时再调用 Finalize 把它从段中删除。
//
// 值不能强引用自己的键，否则键永远不可达。
//
// ============================================================================

type managedEntry[K, V any] struct {
	h   uint32
	key *ref.Reference[K]
	val atomic.Pointer[V]
	seg *segment[*managedEntry[K, V]]
}

func (e *managedEntry[K, V]) hash() uint32 { return e.h }
func (e *managedEntry[K, V]) valid() bool  { return e.key.Valid() }
func (e *managedEntry[K, V]) release()     { e.key.Clear() }

// Finalize 键被回收后由引用管理器调用
func (e *managedEntry[K, V]) Finalize() {
	e.seg.removeEntry(e.h, e)
}

// touch 刷新软引用的 LRU 时间
func (e *managedEntry[K, V]) touch() {
	if e.key.Type() == ref.Soft {
		e.key.Get()
	}
}

// ManagedMap 键由引用管理器管理的并发 map
type ManagedMap[K, V any] struct {
	core[*managedEntry[K, V]]
	seed   maphash.Seed
	bundle *ref.Bundle
}

// NewManagedMap 创建 ManagedMap，bundle 为 nil 时返回 ErrNilBundle
func NewManagedMap[K, V any](bundle *ref.Bundle, opts ...Option) (*ManagedMap[K, V], error) {
	if bundle == nil {
		return nil, ErrNilBundle
	}
	return &ManagedMap[K, V]{
		core:   newCore[*managedEntry[K, V]](opts),
		seed:   maphash.MakeSeed(),
		bundle: bundle,
	}, nil
}

// Bundle 返回键使用的引用 Bundle
func (m *ManagedMap[K, V]) Bundle() *ref.Bundle {
	return m.bundle
}

func (m *ManagedMap[K, V]) lookup(k *K) (uint32, *segment[*managedEntry[K, V]], func(*managedEntry[K, V]) bool) {
	if k == nil {
		panic("concurrent: nil key")
	}
	h := hash1(m.seed, k)
	return h, m.segmentFor(h), func(e *managedEntry[K, V]) bool { return e.key.Is(k) }
}

// newEntry 在段锁之外创建条目：登记引用可能触发同步排空，
// 排空时的 removeEntry 需要段锁
func (m *ManagedMap[K, V]) newEntry(h uint32, s *segment[*managedEntry[K, V]], k *K, v V) *managedEntry[K, V] {
	e := &managedEntry[K, V]{h: h, seg: s}
	e.val.Store(&v)
	e.key = ref.NewReference(m.bundle, k, e)
	return e
}

// Get 无锁读取
func (m *ManagedMap[K, V]) Get(k *K) (V, bool) {
	h, s, match := m.lookup(k)
	if e, ok := s.find(h, match); ok {
		e.touch()
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Put 插入或更新
func (m *ManagedMap[K, V]) Put(k *K, v V) {
	h, s, match := m.lookup(k)
	fresh := m.newEntry(h, s, k, v)
	if _, found := s.put(h, match, fresh, func(e *managedEntry[K, V]) {
		e.val.Store(&v)
		e.touch()
	}); found {
		fresh.release()
	}
}

// GetOrPut 键不存在时插入 v，返回最终的值
func (m *ManagedMap[K, V]) GetOrPut(k *K, v V) (actual V, loaded bool) {
	h, s, match := m.lookup(k)
	if e, ok := s.find(h, match); ok {
		e.touch()
		return *e.val.Load(), true
	}
	fresh := m.newEntry(h, s, k, v)
	e, loaded := s.put(h, match, fresh, nil)
	if loaded {
		fresh.release()
		e.touch()
	}
	return *e.val.Load(), loaded
}

// Remove 删除键
func (m *ManagedMap[K, V]) Remove(k *K) (V, bool) {
	h, s, match := m.lookup(k)
	if e, ok := s.remove(h, match); ok {
		e.release()
		return *e.val.Load(), true
	}
	var zero V
	return zero, false
}

// Size 有效条目数
func (m *ManagedMap[K, V]) Size() int {
	return m.size()
}

// FullSize 槽位数，包括键已回收但还没被删除的条目
func (m *ManagedMap[K, V]) FullSize() int {
	return m.fullSize()
}

// Range 遍历有效条目，虚引用的键以 nil 传给 fn
func (m *ManagedMap[K, V]) Range(fn func(*K, V) bool) {
	m.each(func(e *managedEntry[K, V]) bool {
		k := e.key.Get()
		if k == nil && e.key.Type() != ref.Phantom {
			return true
		}
		return fn(k, *e.val.Load())
	})
}

// Clear 删除所有条目
func (m *ManagedMap[K, V]) Clear() {
	m.clear()
}
