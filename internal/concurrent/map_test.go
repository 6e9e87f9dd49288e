package concurrent

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tangzhangming/gfront/internal/ref"
)

// classKey 模拟运行时的类型对象；含指针字段，回收时机可预测
type classKey struct {
	name string
	id   int
}

func idlingBundle(typ ref.ReferenceType) *ref.Bundle {
	cfg := ref.DefaultManagerConfig()
	cfg.Policy = ref.Idling
	return ref.NewBundle(ref.NewManager(cfg), typ)
}

// waitFor 反复 GC 直到 cond 成立
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
}

// ============================================================================
// ConcurrentMap
// ============================================================================

func TestConcurrentMapRoundTrip(t *testing.T) {
	m := NewConcurrentMap[string, int]()

	m.Put("a", 1)
	m.Put("b", 2)
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}

	m.Put("a", 10)
	if v, _ := m.Get("a"); v != 10 {
		t.Errorf("Get(a) after update = %d", v)
	}
	if m.Size() != 2 || m.FullSize() != 2 {
		t.Errorf("Size = %d FullSize = %d, want 2", m.Size(), m.FullSize())
	}

	if v, ok := m.Remove("a"); !ok || v != 10 {
		t.Errorf("Remove(a) = %d, %v", v, ok)
	}
	if _, ok := m.Get("a"); ok {
		t.Error("Get after Remove should miss")
	}
	if _, ok := m.Remove("a"); ok {
		t.Error("second Remove should miss")
	}
	if m.Size() != 1 {
		t.Errorf("Size = %d, want 1", m.Size())
	}
}

func TestConcurrentMapSegments(t *testing.T) {
	m := NewConcurrentMap[int, int]()
	if len(m.segments) != DefaultSegments {
		t.Errorf("segments = %d, want %d", len(m.segments), DefaultSegments)
	}
	total := 0
	for _, s := range m.segments {
		total += len(s.table.Load().buckets)
	}
	if total != DefaultInitialCapacity {
		t.Errorf("total capacity = %d, want %d", total, DefaultInitialCapacity)
	}

	m2 := NewConcurrentMap[int, int](WithSegments(10), WithInitialCapacity(100))
	if len(m2.segments) != 16 {
		t.Errorf("segments = %d, want 16 (rounded up)", len(m2.segments))
	}
	// 100/16 向上取整为 7，再取 2 的幂得到 8
	if n := len(m2.segments[0].table.Load().buckets); n != 8 {
		t.Errorf("per-segment capacity = %d, want 8", n)
	}
}

func TestConcurrentMapRehash(t *testing.T) {
	m := NewConcurrentMap[int, string](WithSegments(1), WithInitialCapacity(4))

	const n = 1000
	for i := 0; i < n; i++ {
		m.Put(i, fmt.Sprint(i))
	}
	for i := 0; i < n; i++ {
		if v, ok := m.Get(i); !ok || v != fmt.Sprint(i) {
			t.Fatalf("Get(%d) = %q, %v after rehash", i, v, ok)
		}
	}
	if m.Size() != n {
		t.Errorf("Size = %d, want %d", m.Size(), n)
	}

	s := m.segments[0]
	buckets := len(s.table.Load().buckets)
	if float64(n) > float64(buckets)*loadFactor {
		t.Errorf("table of %d buckets is over the load factor for %d entries", buckets, n)
	}
}

func TestConcurrentMapGetOrPutContended(t *testing.T) {
	m := NewConcurrentMap[string, int]()

	const workers = 64
	var (
		wg       sync.WaitGroup
		inserted atomic.Int32
		results  [workers]int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, loaded := m.GetOrPut("key", i)
			if !loaded {
				inserted.Add(1)
			}
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	if inserted.Load() != 1 {
		t.Errorf("%d goroutines inserted, want exactly 1", inserted.Load())
	}
	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d saw %d, goroutine 0 saw %d", i, results[i], results[0])
		}
	}
	if m.FullSize() != 1 {
		t.Errorf("FullSize = %d, want 1", m.FullSize())
	}
}

func TestConcurrentMapParallelWriters(t *testing.T) {
	m := NewConcurrentMap[int, int](WithInitialCapacity(16))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := w*1000 + i
				m.Put(k, k*2)
				if v, ok := m.Get(k); !ok || v != k*2 {
					t.Errorf("Get(%d) = %d, %v", k, v, ok)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if m.Size() != 8*500 {
		t.Errorf("Size = %d, want %d", m.Size(), 8*500)
	}
}

func TestConcurrentMapRangeAndClear(t *testing.T) {
	m := NewConcurrentMap[int, int]()
	for i := 0; i < 10; i++ {
		m.Put(i, i*i)
	}

	sum := 0
	m.Range(func(k, v int) bool {
		if v != k*k {
			t.Errorf("Range(%d) = %d", k, v)
		}
		sum += k
		return true
	})
	if sum != 45 {
		t.Errorf("Range visited keys summing to %d, want 45", sum)
	}

	visited := 0
	m.Range(func(int, int) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Errorf("Range should stop early, visited %d", visited)
	}

	m.Clear()
	if m.Size() != 0 || m.FullSize() != 0 {
		t.Errorf("after Clear Size = %d FullSize = %d", m.Size(), m.FullSize())
	}
	m.Put(1, 1)
	if v, ok := m.Get(1); !ok || v != 1 {
		t.Error("map should be usable after Clear")
	}
}

// ============================================================================
// ConcurrentDoubleKeyMap
// ============================================================================

func TestConcurrentDoubleKeyMap(t *testing.T) {
	m := NewConcurrentDoubleKeyMap[string, string, int]()

	m.Put("a", "b", 1)
	m.Put("b", "a", 2)
	if v, ok := m.Get("a", "b"); !ok || v != 1 {
		t.Errorf("Get(a, b) = %d, %v", v, ok)
	}
	if v, ok := m.Get("b", "a"); !ok || v != 2 {
		t.Errorf("Get(b, a) = %d, %v", v, ok)
	}

	if v, loaded := m.GetOrPut("a", "b", 99); !loaded || v != 1 {
		t.Errorf("GetOrPut existing = %d, %v", v, loaded)
	}
	if v, loaded := m.GetOrPut("c", "d", 3); loaded || v != 3 {
		t.Errorf("GetOrPut new = %d, %v", v, loaded)
	}

	if _, ok := m.Remove("a", "b"); !ok {
		t.Error("Remove(a, b) should hit")
	}
	if _, ok := m.Get("a", "b"); ok {
		t.Error("Get after Remove should miss")
	}

	n := 0
	m.Range(func(k1, k2 string, v int) bool {
		n++
		return true
	})
	if n != 2 || m.Size() != 2 {
		t.Errorf("Range visited %d, Size = %d, want 2", n, m.Size())
	}
}

// ============================================================================
// ManagedMap
// ============================================================================

func TestManagedMapNilBundle(t *testing.T) {
	if _, err := NewManagedMap[classKey, int](nil); !errors.Is(err, ErrNilBundle) {
		t.Errorf("NewManagedMap(nil) error = %v", err)
	}
	if _, err := NewManagedDoubleKeyMap[classKey, classKey, int](nil); !errors.Is(err, ErrNilBundle) {
		t.Errorf("NewManagedDoubleKeyMap(nil) error = %v", err)
	}
}

func TestManagedMapIdentity(t *testing.T) {
	m, err := NewManagedMap[classKey, string](idlingBundle(ref.Weak))
	if err != nil {
		t.Fatal(err)
	}

	k := &classKey{name: "String", id: 1}
	twin := &classKey{name: "String", id: 1}
	m.Put(k, "v1")

	if v, ok := m.Get(k); !ok || v != "v1" {
		t.Errorf("Get(k) = %q, %v", v, ok)
	}
	if _, ok := m.Get(twin); ok {
		t.Error("an equal but distinct key must miss")
	}

	m.Put(k, "v2")
	if v, _ := m.Get(k); v != "v2" || m.FullSize() != 1 {
		t.Errorf("update: Get = %q, FullSize = %d", v, m.FullSize())
	}

	if v, loaded := m.GetOrPut(k, "v3"); !loaded || v != "v2" {
		t.Errorf("GetOrPut existing = %q, %v", v, loaded)
	}
	if v, ok := m.Remove(k); !ok || v != "v2" {
		t.Errorf("Remove = %q, %v", v, ok)
	}
	if m.Size() != 0 || m.FullSize() != 0 {
		t.Errorf("after Remove Size = %d FullSize = %d", m.Size(), m.FullSize())
	}
	runtime.KeepAlive(twin)
}

func TestManagedMapNilKeyPanics(t *testing.T) {
	m, _ := NewManagedMap[classKey, int](idlingBundle(ref.Weak))
	defer func() {
		if recover() == nil {
			t.Error("nil key should panic")
		}
	}()
	m.Put(nil, 1)
}

func putDetached(m *ManagedMap[classKey, string], name string) {
	m.Put(&classKey{name: name}, name)
}

func TestManagedMapWeakReclaim(t *testing.T) {
	b := idlingBundle(ref.Weak)
	m, _ := NewManagedMap[classKey, string](b)

	live := &classKey{name: "live"}
	m.Put(live, "live")
	putDetached(m, "gone")

	if m.FullSize() != 2 {
		t.Fatalf("FullSize = %d, want 2", m.FullSize())
	}

	waitFor(t, "weak key to be reclaimed", func() bool {
		return m.Size() == 1
	})
	waitFor(t, "reclaimed key to be queued", func() bool {
		return b.Manager().Queue().Len() > 0
	})

	if m.FullSize() != 2 {
		t.Errorf("stale slot should remain until drained, FullSize = %d", m.FullSize())
	}
	b.Manager().Drain()
	if m.FullSize() != 1 {
		t.Errorf("FullSize after drain = %d, want 1", m.FullSize())
	}
	if v, ok := m.Get(live); !ok || v != "live" {
		t.Errorf("live key lost: %q, %v", v, ok)
	}
	runtime.KeepAlive(live)
}

func TestManagedMapThreadedReaping(t *testing.T) {
	cfg := ref.DefaultManagerConfig()
	cfg.Policy = ref.Threaded
	cfg.PollInterval = 10 * time.Millisecond
	mgr := ref.NewManager(cfg)
	defer mgr.Stop()

	m, _ := NewManagedMap[classKey, string](ref.NewBundle(mgr, ref.Weak))
	for i := 0; i < 20; i++ {
		putDetached(m, fmt.Sprint(i))
	}

	waitFor(t, "all entries to be reaped", func() bool {
		return m.FullSize() == 0
	})
}

func TestManagedMapRemoveCancelsNotification(t *testing.T) {
	b := idlingBundle(ref.Weak)
	m, _ := NewManagedMap[classKey, string](b)

	func() {
		k := &classKey{name: "removed"}
		m.Put(k, "x")
		m.Remove(k)
	}()

	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	if n := b.Manager().Queue().Len(); n != 0 {
		t.Errorf("removed entry should not be queued, queue length %d", n)
	}
}

func TestManagedMapHardAndSoftKeys(t *testing.T) {
	hard, _ := NewManagedMap[classKey, string](idlingBundle(ref.Hard))
	putDetached(hard, "pinned")

	cfg := ref.DefaultManagerConfig()
	cfg.Policy = ref.Idling
	cfg.FreeHeap = func() uint64 { return 1 << 40 }
	soft, _ := NewManagedMap[classKey, string](ref.NewBundle(ref.NewManager(cfg), ref.Soft))
	putDetached(soft, "cached")

	runtime.GC()
	runtime.GC()

	if hard.Size() != 1 {
		t.Error("hard key must never be reclaimed")
	}
	if soft.Size() != 1 {
		t.Error("soft key should survive while the heap has room")
	}

	n := 0
	soft.Range(func(k *classKey, v string) bool {
		if k == nil || k.name != v {
			t.Errorf("Range got %v, %q", k, v)
		}
		n++
		return true
	})
	if n != 1 {
		t.Errorf("Range visited %d entries", n)
	}
}

func TestManagedMapPhantomKeys(t *testing.T) {
	m, _ := NewManagedMap[classKey, int](idlingBundle(ref.Phantom))
	k := &classKey{name: "phantom"}
	m.Put(k, 7)

	if v, ok := m.Get(k); !ok || v != 7 {
		t.Errorf("phantom key should still match by identity: %d, %v", v, ok)
	}
	m.Range(func(key *classKey, v int) bool {
		if key != nil {
			t.Error("phantom keys are never exposed")
		}
		return true
	})
	runtime.KeepAlive(k)
}

func TestManagedMapGetOrPutContended(t *testing.T) {
	m, _ := NewManagedMap[classKey, *int](idlingBundle(ref.Weak))
	k := &classKey{name: "shared"}

	const workers = 32
	var wg sync.WaitGroup
	results := make([]*int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := i
			results[i], _ = m.GetOrPut(k, &v)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if results[i] != results[0] {
			t.Fatal("all callers must observe the same value")
		}
	}
	if m.FullSize() != 1 {
		t.Errorf("FullSize = %d, want 1", m.FullSize())
	}
	runtime.KeepAlive(k)
}

// ============================================================================
// ManagedDoubleKeyMap
// ============================================================================

func TestManagedDoubleKeyMap(t *testing.T) {
	m, _ := NewManagedDoubleKeyMap[classKey, classKey, string](idlingBundle(ref.Weak))

	recv := &classKey{name: "List"}
	arg := &classKey{name: "Integer"}
	m.Put(recv, arg, "get(int)")

	if v, ok := m.Get(recv, arg); !ok || v != "get(int)" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if _, ok := m.Get(arg, recv); ok {
		t.Error("key order matters")
	}
	if v, loaded := m.GetOrPut(recv, arg, "other"); !loaded || v != "get(int)" {
		t.Errorf("GetOrPut existing = %q, %v", v, loaded)
	}
	if _, ok := m.Remove(recv, arg); !ok || m.FullSize() != 0 {
		t.Error("Remove should delete the entry")
	}
	runtime.KeepAlive(recv)
	runtime.KeepAlive(arg)
}

func TestManagedDoubleKeyMapRemoveIf(t *testing.T) {
	m, _ := NewManagedDoubleKeyMap[classKey, classKey, *string](idlingBundle(ref.Weak))

	recv := &classKey{name: "List"}
	arg := &classKey{name: "Integer"}
	stale, fresh := new(string), new(string)
	m.Put(recv, arg, stale)
	m.Put(recv, arg, fresh)

	same := func(want *string) func(*string) bool {
		return func(cur *string) bool { return cur == want }
	}
	if m.RemoveIf(recv, arg, same(stale)) {
		t.Error("RemoveIf removed an entry holding a different value")
	}
	if v, ok := m.Get(recv, arg); !ok || v != fresh {
		t.Errorf("Get = %p, %v, want the fresh value", v, ok)
	}
	if !m.RemoveIf(recv, arg, same(fresh)) {
		t.Error("RemoveIf should remove the matching value")
	}
	if m.FullSize() != 0 {
		t.Errorf("FullSize = %d", m.FullSize())
	}
	if m.RemoveIf(recv, arg, same(fresh)) {
		t.Error("RemoveIf on a missing key")
	}
	runtime.KeepAlive(recv)
	runtime.KeepAlive(arg)
}

func TestManagedDoubleKeyMapRemoveIfContended(t *testing.T) {
	m, _ := NewManagedDoubleKeyMap[classKey, classKey, *int](idlingBundle(ref.Weak))
	recv := &classKey{name: "List"}
	arg := &classKey{name: "Integer"}

	// 每个 goroutine 放入自己的值再按身份删除，不能误删别人的值
	var wrong atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				mine := new(int)
				cur, _ := m.GetOrPut(recv, arg, mine)
				if cur != mine {
					continue
				}
				if !m.RemoveIf(recv, arg, func(v *int) bool { return v == mine }) {
					wrong.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if wrong.Load() != 0 {
		t.Errorf("%d owned values were removed by another goroutine", wrong.Load())
	}
	if m.FullSize() != 0 {
		t.Errorf("FullSize = %d", m.FullSize())
	}
	runtime.KeepAlive(recv)
	runtime.KeepAlive(arg)
}

func TestManagedDoubleKeyMapEitherKeyReclaimed(t *testing.T) {
	b := idlingBundle(ref.Weak)
	m, _ := NewManagedDoubleKeyMap[classKey, classKey, string](b)

	recv := &classKey{name: "Map"}
	func() {
		arg := &classKey{name: "Temp"}
		m.Put(recv, arg, "put(Temp)")
	}()

	waitFor(t, "argument type to be reclaimed", func() bool {
		return m.Size() == 0
	})
	waitFor(t, "reclaimed key to be queued", func() bool {
		return b.Manager().Queue().Len() > 0
	})
	b.Manager().Drain()

	if m.FullSize() != 0 {
		t.Errorf("FullSize = %d, entry should be removed when one key dies", m.FullSize())
	}
	if s := b.Manager().Stats(); s.Finalized != 1 {
		t.Errorf("finalized = %d, want 1", s.Finalized)
	}
	runtime.KeepAlive(recv)
}

// ============================================================================
// 基准测试
// ============================================================================

func BenchmarkConcurrentMapGet(b *testing.B) {
	m := NewConcurrentMap[int, int]()
	for i := 0; i < 1024; i++ {
		m.Put(i, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Get(i & 1023)
	}
}

func BenchmarkConcurrentMapParallelGetOrPut(b *testing.B) {
	m := NewConcurrentMap[int, int]()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.GetOrPut(i&4095, i)
			i++
		}
	})
}

func BenchmarkManagedDoubleKeyMapGet(b *testing.B) {
	m, _ := NewManagedDoubleKeyMap[classKey, classKey, int](idlingBundle(ref.Weak))
	keys := make([]*classKey, 64)
	for i := range keys {
		keys[i] = &classKey{id: i}
	}
	for i := range keys {
		m.Put(keys[i], keys[(i+1)%len(keys)], i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % len(keys)
		m.Get(keys[j], keys[(j+1)%len(keys)])
	}
}
