// Package ref 实现引用管理服务
//
// 缓存条目通过 Reference 持有键。键不可达后，运行时的 cleanup 把引用放入
// Manager 的队列，Manager 按策略排空队列并恰好调用一次 Finalize，
// 条目借此把自己从所属的 map 段中删除。
package ref

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
	"weak"

	uatomic "go.uber.org/atomic"
)

// ============================================================================
// 引用类型
// ============================================================================

// ReferenceType 引用强度
type ReferenceType int

const (
	// Soft 软引用：空闲超过 LRU 时钟允许的时间后才释放强引用
	Soft ReferenceType = iota
	// Weak 弱引用：只要没有其他强引用就可以回收
	Weak
	// Phantom 虚引用：Get 永远返回 nil，只用于回收通知
	Phantom
	// Hard 强引用：永不回收，直到 Clear
	Hard
)

var referenceTypeNames = [...]string{
	Soft:    "soft",
	Weak:    "weak",
	Phantom: "phantom",
	Hard:    "hard",
}

func (t ReferenceType) String() string {
	if t >= 0 && int(t) < len(referenceTypeNames) {
		return referenceTypeNames[t]
	}
	return fmt.Sprintf("ReferenceType(%d)", int(t))
}

// ParseReferenceType 解析配置中的引用类型名
func ParseReferenceType(s string) (ReferenceType, error) {
	for t, name := range referenceTypeNames {
		if name == s {
			return ReferenceType(t), nil
		}
	}
	return 0, fmt.Errorf("ref: unknown reference type %q", s)
}

// Finalizable 引用被回收后的回调
type Finalizable interface {
	Finalize()
}

// ============================================================================
// Reference
// ============================================================================
//
// Reference 不强持有弱、软、虚引用的对象，只保存 weak.Pointer。
// 软引用额外保存一个强引用 pin，由 Manager 的 LRU 时钟释放；
// 释放之后 Get 若仍能取到对象，会重新 pin 住它。
//
// 注意：runtime.AddCleanup 的参数是 Reference 本身。pin 存在期间
// 对象不会被回收，这正是软引用的语义。强引用不注册 cleanup。
//
// ============================================================================

// Reference 受 Manager 管理的引用
type Reference[T any] struct {
	typ     ReferenceType
	manager *Manager

	ptr    weak.Pointer[T]
	strong atomic.Pointer[T] // Hard 的引用，或 Soft 的 pin

	lastUse   *uatomic.Int64 // Soft：最近一次访问（UnixNano）
	finalized *uatomic.Bool  // Finalize 已执行或已 Clear

	finalizer  Finalizable
	cleanup    runtime.Cleanup
	hasCleanup bool
}

// NewReference 在 bundle 的 Manager 上登记一个新引用
//
// referent 被回收时 finalizer.Finalize 由 Manager 调用，最多一次。
// finalizer 可以为 nil。finalizer 不能强引用 referent，否则对象永远不可达。
func NewReference[T any](b *Bundle, referent *T, finalizer Finalizable) *Reference[T] {
	r := &Reference[T]{
		typ:       b.Type(),
		manager:   b.Manager(),
		lastUse:   uatomic.NewInt64(time.Now().UnixNano()),
		finalized: uatomic.NewBool(false),
		finalizer: finalizer,
	}
	if referent != nil {
		r.ptr = weak.Make(referent)
	}

	switch r.typ {
	case Hard:
		r.strong.Store(referent)
	case Soft:
		r.strong.Store(referent)
		r.manager.trackSoft(r)
	}

	if referent != nil && r.typ != Hard {
		r.cleanup = runtime.AddCleanup(referent, func(r *Reference[T]) {
			r.manager.enqueue(r)
		}, r)
		r.hasCleanup = true
	}

	r.manager.registered()
	return r
}

// Type 返回引用类型
func (r *Reference[T]) Type() ReferenceType {
	return r.typ
}

// Get 返回引用的对象，已回收或虚引用返回 nil
func (r *Reference[T]) Get() *T {
	switch r.typ {
	case Phantom:
		return nil
	case Hard:
		return r.strong.Load()
	}
	if r.finalized.Load() {
		return nil
	}
	p := r.ptr.Value()
	if p != nil && r.typ == Soft {
		r.touch(p)
	}
	return p
}

// Is 判断引用是否指向 p（按对象身份比较）
//
// 虚引用也可以比较，map 用它匹配键。
func (r *Reference[T]) Is(p *T) bool {
	if p == nil {
		return false
	}
	return r.ptr == weak.Make(p)
}

// Valid 对象仍然存活且引用没有被清除
func (r *Reference[T]) Valid() bool {
	if r.finalized.Load() {
		return false
	}
	if r.typ == Hard {
		return r.strong.Load() != nil
	}
	return r.ptr.Value() != nil
}

// Finalized Finalize 已经执行或引用已被清除
func (r *Reference[T]) Finalized() bool {
	return r.finalized.Load()
}

// Clear 清除引用并取消回收通知，之后 Finalize 不再调用回调
func (r *Reference[T]) Clear() {
	if !r.finalized.CAS(false, true) {
		return
	}
	r.release()
}

// Finalize 执行回收回调，只有第一次调用生效
func (r *Reference[T]) Finalize() {
	if !r.finalized.CAS(false, true) {
		return
	}
	if r.finalizer != nil {
		r.finalizer.Finalize()
	}
	r.release()
}

func (r *Reference[T]) release() {
	if r.hasCleanup {
		r.cleanup.Stop()
	}
	r.strong.Store(nil)
	if r.typ == Soft {
		r.manager.untrackSoft(r)
	}
}

// ----------------------------------------------------------------------------
// 软引用
// ----------------------------------------------------------------------------

func (r *Reference[T]) touch(p *T) {
	r.lastUse.Store(time.Now().UnixNano())
	if r.strong.Load() == nil && !r.finalized.Load() {
		r.strong.Store(p)
	}
}

// unpin 空闲超过 maxIdle 时释放强引用，返回是否释放
func (r *Reference[T]) unpin(now int64, maxIdle time.Duration) bool {
	if r.strong.Load() == nil {
		return false
	}
	if time.Duration(now-r.lastUse.Load()) <= maxIdle {
		return false
	}
	r.strong.Store(nil)
	return true
}

// pinned 软引用当前是否持有强引用
func (r *Reference[T]) pinned() bool {
	return r.strong.Load() != nil
}
