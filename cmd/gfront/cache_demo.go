package main

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/tangzhangming/gfront/internal/dispatch"
	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/ref"
)

// demoClass cache-demo 中的运行时类型
type demoClass struct {
	name    string
	methods []string
}

var demoArgs = []string{"Integer", "String", "List", "Closure"}

func resolveDemo(recv, arg *demoClass) (string, error) {
	return fmt.Sprintf("%s.call(%s)", recv.name, arg.name), nil
}

// cmdCacheDemo 用配置中的引用类型和排空策略运行分派缓存
//
// 创建 n 个接收者类型，在几个调用点上并发查找，然后丢弃一半类型并触发 GC，
// 最后输出缓存和引用管理器的统计。
func (a *app) cmdCacheDemo(args []string) int {
	fs := a.newFlagSet("cache-demo")
	n := fs.Int("n", 1000, "number of receiver types")
	sites := fs.Int("sites", 8, "number of call sites")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *n < 1 || *sites < 1 {
		fs.Usage()
		return 2
	}

	logger := a.logger.Named("cache-demo")
	mc := a.cfg.ManagerConfig()
	mc.Logger = a.logger.Named("ref")
	manager := ref.NewManager(mc)
	defer manager.Stop()

	bundle := ref.NewBundle(manager, a.cfg.ReferenceType())
	cache, err := dispatch.NewCache[demoClass, demoClass, string](bundle, logger, a.cfg.MapOptions()...)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}

	argTypes := make([]*demoClass, len(demoArgs))
	for i, name := range demoArgs {
		argTypes[i] = &demoClass{name: name}
	}
	receivers := make([]*demoClass, *n)
	for i := range receivers {
		receivers[i] = &demoClass{name: fmt.Sprintf("C%d", i), methods: []string{"call"}}
	}

	lookupAll := func() {
		var wg sync.WaitGroup
		for s := 0; s < *sites; s++ {
			wg.Add(1)
			go func(s int) {
				defer wg.Done()
				site := cache.Site(fmt.Sprintf("Demo.groovy:%d", s+1))
				// 前一半调用点只见过一种类型，其余的调用点见过所有类型
				for i, recv := range receivers {
					if recv == nil || (s < *sites/2 && i > 0) {
						continue
					}
					arg := argTypes[(i+s)%len(argTypes)]
					if _, err := site.Lookup(recv, arg, resolveDemo); err != nil {
						logger.Warn("lookup failed", zap.Error(err))
					}
				}
			}(s)
		}
		wg.Wait()
	}

	lookupAll()
	lookupAll()
	before := cache.Stats()

	// 丢弃一半接收者类型
	for i := 1; i < len(receivers); i += 2 {
		receivers[i] = nil
	}
	runtime.GC()
	runtime.GC()
	drained := manager.Drain()

	st := cache.Stats()
	logger.Info("cache demo finished",
		zap.Stringer("reference", bundle.Type()),
		zap.Stringer("policy", manager.Policy()),
		zap.Int("entriesBefore", before.Entries),
		zap.Int("entriesAfter", st.Entries),
		zap.Int("drained", drained),
		zap.Int64("resolutions", st.Resolutions),
		zap.Float64("hitRate", st.HitRate()))

	fmt.Fprintln(a.stdout, i18n.T(i18n.CLICacheStats, st.Entries, st.Slots, st.TotalHits, st.TotalMisses, st.TotalSites))
	fmt.Fprintf(a.stdout, "call sites: %d monomorphic, %d polymorphic, %d megamorphic\n",
		st.MonomorphicSites, st.PolymorphicSites, st.MegamorphicSites)

	ms := manager.Stats()
	fmt.Fprintf(a.stdout, "references: %s/%s, %d registered, %d finalized, %d pending\n",
		bundle.Type(), ms.Policy, ms.Registrations, ms.Finalized, ms.Pending)

	runtime.KeepAlive(receivers)
	runtime.KeepAlive(argTypes)
	return 0
}
