// Package concurrent 实现分段并发 map
//
// 每个 map 由固定数量的段组成。读操作不加锁：段的桶表通过原子指针
// 发布，每个桶是只读的条目切片，修改时整体替换（写时复制）。
// 写操作持有所在段的锁，不同段之间互不阻塞。
//
// 引用型的 map（ManagedMap、ManagedDoubleKeyMap）通过 ref.Reference
// 持有键，键被回收后条目由引用管理器从段中删除。
package concurrent

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// 条目与桶
// ============================================================================

// entry 段中存储的条目
//
// 条目一旦发布就不再修改哈希和键，值通过原子指针更新。
type entry interface {
	comparable
	hash() uint32
	valid() bool
	release()
}

// bucket 发布后不可修改
type bucket[E entry] []E

type table[E entry] struct {
	buckets []atomic.Pointer[bucket[E]]
}

func newTable[E entry](n int) *table[E] {
	return &table[E]{buckets: make([]atomic.Pointer[bucket[E]], n)}
}

func (t *table[E]) slot(h uint32) *atomic.Pointer[bucket[E]] {
	return &t.buckets[h&uint32(len(t.buckets)-1)]
}

// ============================================================================
// 段
// ============================================================================

const loadFactor = 0.75

type segment[E entry] struct {
	mu    sync.Mutex
	table atomic.Pointer[table[E]]

	// 以下字段持锁访问
	initial   int
	count     int // 槽位数，包括已失效但尚未删除的条目
	threshold int
}

func newSegment[E entry](capacity int) *segment[E] {
	s := &segment[E]{initial: capacity}
	s.setTable(newTable[E](capacity))
	return s
}

func (s *segment[E]) setTable(t *table[E]) {
	s.threshold = int(float64(len(t.buckets)) * loadFactor)
	s.table.Store(t)
}

// find 无锁查找匹配的有效条目
func (s *segment[E]) find(h uint32, match func(E) bool) (E, bool) {
	if b := s.table.Load().slot(h).Load(); b != nil {
		for _, e := range *b {
			if e.hash() == h && match(e) && e.valid() {
				return e, true
			}
		}
	}
	var zero E
	return zero, false
}

// put 持锁查找匹配的有效条目
//
// 找到时调用 onFound（可以为 nil）并返回该条目和 true；
// 否则插入 fresh 并返回 fresh 和 false。
func (s *segment[E]) put(h uint32, match func(E) bool, fresh E, onFound func(E)) (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.table.Load().slot(h)
	old := slot.Load()
	if old != nil {
		for _, e := range *old {
			if e.hash() == h && match(e) && e.valid() {
				if onFound != nil {
					onFound(e)
				}
				return e, true
			}
		}
	}

	var nb bucket[E]
	if old != nil {
		nb = make(bucket[E], len(*old), len(*old)+1)
		copy(nb, *old)
	}
	nb = append(nb, fresh)
	slot.Store(&nb)

	s.count++
	if s.count > s.threshold {
		s.rehash()
	}
	return fresh, false
}

// remove 删除匹配的有效条目
func (s *segment[E]) remove(h uint32, match func(E) bool) (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.table.Load().slot(h)
	if b := slot.Load(); b != nil {
		for i, e := range *b {
			if e.hash() == h && match(e) && e.valid() {
				s.unlink(slot, *b, i)
				return e, true
			}
		}
	}
	var zero E
	return zero, false
}

// removeEntry 删除指定条目（按身份），引用回收时调用
func (s *segment[E]) removeEntry(h uint32, target E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.table.Load().slot(h)
	if b := slot.Load(); b != nil {
		for i, e := range *b {
			if e == target {
				s.unlink(slot, *b, i)
				return true
			}
		}
	}
	return false
}

// unlink 持锁调用
func (s *segment[E]) unlink(slot *atomic.Pointer[bucket[E]], b bucket[E], i int) {
	s.count--
	if len(b) == 1 {
		slot.Store(nil)
		return
	}
	nb := make(bucket[E], 0, len(b)-1)
	nb = append(nb, b[:i]...)
	nb = append(nb, b[i+1:]...)
	slot.Store(&nb)
}

// rehash 桶表扩大一倍，同时丢弃已失效的条目，持锁调用
func (s *segment[E]) rehash() {
	old := s.table.Load()
	nt := newTable[E](len(old.buckets) * 2)

	live := 0
	for i := range old.buckets {
		b := old.buckets[i].Load()
		if b == nil {
			continue
		}
		for _, e := range *b {
			if !e.valid() {
				continue
			}
			slot := nt.slot(e.hash())
			var nb bucket[E]
			if cur := slot.Load(); cur != nil {
				nb = append(nb, *cur...)
			}
			nb = append(nb, e)
			slot.Store(&nb)
			live++
		}
	}

	s.count = live
	s.setTable(nt)
}

// size 无锁统计有效条目
func (s *segment[E]) size() int {
	t := s.table.Load()
	n := 0
	for i := range t.buckets {
		if b := t.buckets[i].Load(); b != nil {
			for _, e := range *b {
				if e.valid() {
					n++
				}
			}
		}
	}
	return n
}

// fullSize 槽位数，包括失效条目
func (s *segment[E]) fullSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// each 无锁遍历有效条目，fn 返回 false 时停止
func (s *segment[E]) each(fn func(E) bool) bool {
	t := s.table.Load()
	for i := range t.buckets {
		b := t.buckets[i].Load()
		if b == nil {
			continue
		}
		for _, e := range *b {
			if e.valid() && !fn(e) {
				return false
			}
		}
	}
	return true
}

// clear 清空段，返回被删除的条目
func (s *segment[E]) clear() []E {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []E
	t := s.table.Load()
	for i := range t.buckets {
		if b := t.buckets[i].Load(); b != nil {
			removed = append(removed, *b...)
		}
	}
	s.count = 0
	s.setTable(newTable[E](s.initial))
	return removed
}
