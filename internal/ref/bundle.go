package ref

import "sync"

// Bundle 引用类型与管理器的组合，map 用它创建键的引用
type Bundle struct {
	manager *Manager
	typ     ReferenceType
}

// NewBundle 创建 Bundle
func NewBundle(m *Manager, typ ReferenceType) *Bundle {
	return &Bundle{manager: m, typ: typ}
}

// Manager 返回管理器
func (b *Bundle) Manager() *Manager {
	return b.manager
}

// Type 返回引用类型
func (b *Bundle) Type() ReferenceType {
	return b.typ
}

// ============================================================================
// 默认 Bundle
// ============================================================================
//
// 软引用和弱引用 Bundle 共享同一个 ThresholdedIdling 管理器。
//
// ============================================================================

var (
	defaultOnce    sync.Once
	defaultManager *Manager
	softBundle     *Bundle
	weakBundle     *Bundle
)

func initDefaults() {
	defaultOnce.Do(func() {
		defaultManager = NewManager(DefaultManagerConfig())
		softBundle = NewBundle(defaultManager, Soft)
		weakBundle = NewBundle(defaultManager, Weak)
	})
}

// DefaultManager 返回进程级默认管理器
func DefaultManager() *Manager {
	initDefaults()
	return defaultManager
}

// SoftBundle 默认软引用 Bundle
func SoftBundle() *Bundle {
	initDefaults()
	return softBundle
}

// WeakBundle 默认弱引用 Bundle
func WeakBundle() *Bundle {
	initDefaults()
	return weakBundle
}
