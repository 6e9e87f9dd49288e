package ref

import (
	"runtime/metrics"
	"time"
)

const (
	metricHeapGoal    = "/gc/heap/goal:bytes"
	metricHeapObjects = "/memory/classes/heap/objects:bytes"
)

// FreeHeapBytes 估算下一次 GC 之前还能分配的字节数
func FreeHeapBytes() uint64 {
	samples := []metrics.Sample{
		{Name: metricHeapGoal},
		{Name: metricHeapObjects},
	}
	metrics.Read(samples)

	if samples[0].Value.Kind() != metrics.KindUint64 || samples[1].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	goal := samples[0].Value.Uint64()
	used := samples[1].Value.Uint64()
	if used >= goal {
		return 0
	}
	return goal - used
}

// softMaxIdle 软引用允许的最长空闲时间：每 MB 空闲堆 msPerMB 毫秒
func softMaxIdle(freeBytes uint64, msPerMB int64) time.Duration {
	mb := int64(freeBytes >> 20)
	return time.Duration(mb*msPerMB) * time.Millisecond
}
