package concurrent

import (
	"errors"
	"hash/maphash"
)

// ErrNilBundle 引用型 map 必须提供引用 Bundle
var ErrNilBundle = errors.New("concurrent: nil reference bundle")

// ============================================================================
// 哈希
// ============================================================================
//
// 键的原始哈希来自 maphash，折叠成 32 位后再做一次位混合。
// 混合后的值高位选段，低位选桶。
//
// ============================================================================

func mix(h uint32) uint32 {
	h += ^(h << 9)
	h ^= h >> 14
	h += h << 4
	h ^= h >> 10
	return h
}

func fold(x uint64) uint32 {
	return uint32(x ^ x>>32)
}

func rawHash[K comparable](seed maphash.Seed, k K) uint32 {
	return fold(maphash.Comparable(seed, k))
}

func hash1[K comparable](seed maphash.Seed, k K) uint32 {
	return mix(rawHash(seed, k))
}

func hash2[K1, K2 comparable](seed maphash.Seed, k1 K1, k2 K2) uint32 {
	return mix(31*rawHash(seed, k1) + rawHash(seed, k2))
}

// ============================================================================
// 选项
// ============================================================================

const (
	// DefaultSegments 默认段数
	DefaultSegments = 16

	// DefaultInitialCapacity 所有段加起来的初始桶数
	DefaultInitialCapacity = 512

	maxSegments = 1 << 16
)

type options struct {
	segments int
	capacity int
}

// Option map 构造选项
type Option func(*options)

// WithSegments 设置段数，向上取整到 2 的幂
func WithSegments(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.segments = min(n, maxSegments)
		}
	}
}

// WithInitialCapacity 设置总初始容量
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// ============================================================================
// 分段核心
// ============================================================================

type core[E entry] struct {
	segments     []*segment[E]
	segmentShift uint32
	segmentMask  uint32
}

func newCore[E entry](opts []Option) core[E] {
	o := options{segments: DefaultSegments, capacity: DefaultInitialCapacity}
	for _, opt := range opts {
		opt(&o)
	}

	sshift, ssize := 0, 1
	for ssize < o.segments {
		sshift++
		ssize <<= 1
	}

	per := o.capacity / ssize
	if per*ssize < o.capacity {
		per++
	}
	capacity := 1
	for capacity < per {
		capacity <<= 1
	}

	c := core[E]{
		segments:     make([]*segment[E], ssize),
		segmentShift: uint32(32 - sshift),
		segmentMask:  uint32(ssize - 1),
	}
	for i := range c.segments {
		c.segments[i] = newSegment[E](capacity)
	}
	return c
}

func (c *core[E]) segmentFor(h uint32) *segment[E] {
	return c.segments[(h>>c.segmentShift)&c.segmentMask]
}

func (c *core[E]) size() int {
	n := 0
	for _, s := range c.segments {
		n += s.size()
	}
	return n
}

func (c *core[E]) fullSize() int {
	n := 0
	for _, s := range c.segments {
		n += s.fullSize()
	}
	return n
}

func (c *core[E]) each(fn func(E) bool) {
	for _, s := range c.segments {
		if !s.each(fn) {
			return
		}
	}
}

// clear 清空所有段并释放条目持有的引用
func (c *core[E]) clear() {
	for _, s := range c.segments {
		for _, e := range s.clear() {
			e.release()
		}
	}
}
