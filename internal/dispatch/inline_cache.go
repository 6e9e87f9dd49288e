package dispatch

import (
	"sync"
	"weak"
)

// ============================================================================
// 内联缓存 (Inline Cache)
// ============================================================================

// ICState 内联缓存状态
type ICState byte

const (
	ICUninitialized ICState = iota // 未初始化
	ICMonomorphic                  // 单态（只见过一个类型对）
	ICPolymorphic                  // 多态（见过多个类型对，但有限）
	ICMegamorphic                  // 超多态（太多类型对，放弃内联缓存）
)

func (s ICState) String() string {
	switch s {
	case ICUninitialized:
		return "uninitialized"
	case ICMonomorphic:
		return "monomorphic"
	case ICPolymorphic:
		return "polymorphic"
	case ICMegamorphic:
		return "megamorphic"
	}
	return "unknown"
}

// MaxPolymorphicEntries 多态缓存最大条目数
const MaxPolymorphicEntries = 4

// icEntry 缓存条目，类型只以弱指针保存
type icEntry[R, A, M any] struct {
	recv   weak.Pointer[R]
	arg    weak.Pointer[A]
	target M
}

// inlineCache 一个调用点的内联缓存，由 CallSite 加锁访问
type inlineCache[R, A, M any] struct {
	mu      sync.Mutex
	state   ICState
	entries []icEntry[R, A, M]
	hits    int64
	misses  int64
}

// lookup 查找缓存，返回目标和是否命中
func (ic *inlineCache[R, A, M]) lookup(recv weak.Pointer[R], arg weak.Pointer[A]) (M, bool) {
	if ic.state != ICUninitialized && ic.state != ICMegamorphic {
		for i := range ic.entries {
			if ic.entries[i].recv == recv && ic.entries[i].arg == arg {
				ic.hits++
				return ic.entries[i].target, true
			}
		}
	}
	ic.misses++
	var zero M
	return zero, false
}

// update 记录新的类型对
func (ic *inlineCache[R, A, M]) update(recv weak.Pointer[R], arg weak.Pointer[A], target M) {
	if ic.state == ICMegamorphic {
		return // 已放弃缓存
	}

	for i := range ic.entries {
		if ic.entries[i].recv == recv && ic.entries[i].arg == arg {
			ic.entries[i].target = target
			return
		}
	}

	// 已回收的类型不会再出现，先腾出位置
	ic.prune()

	entry := icEntry[R, A, M]{recv: recv, arg: arg, target: target}
	switch {
	case len(ic.entries) == 0:
		ic.entries = append(ic.entries, entry)
		ic.state = ICMonomorphic
	case len(ic.entries) < MaxPolymorphicEntries:
		ic.entries = append(ic.entries, entry)
		ic.state = ICPolymorphic
	default:
		ic.entries = nil
		ic.state = ICMegamorphic
	}
}

func (ic *inlineCache[R, A, M]) prune() {
	live := ic.entries[:0]
	for _, e := range ic.entries {
		if e.recv.Value() != nil && e.arg.Value() != nil {
			live = append(live, e)
		}
	}
	clear(ic.entries[len(live):])
	ic.entries = live
}

// reset 重置缓存
func (ic *inlineCache[R, A, M]) reset() {
	ic.state = ICUninitialized
	ic.entries = nil
}
