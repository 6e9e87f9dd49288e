package ref

import (
	"context"
	"sync"
	"time"
)

// Queue 等待终结的引用队列
//
// 运行时的 cleanup goroutine 只负责入队，不能在那里执行耗时的回调。
type Queue struct {
	mu     sync.Mutex
	items  []Finalizable
	signal chan struct{}
}

// NewQueue 创建引用队列
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

func (q *Queue) enqueue(r Finalizable) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Poll 非阻塞地取出一个引用，队列为空返回 nil
func (q *Queue) Poll() Finalizable {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	r := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return r
}

// Remove 取出一个引用，队列为空时最多等待 timeout
//
// 超时或 ctx 结束返回 nil。
func (q *Queue) Remove(ctx context.Context, timeout time.Duration) Finalizable {
	if r := q.Poll(); r != nil {
		return r
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return q.Poll()
		case <-q.signal:
			if r := q.Poll(); r != nil {
				return r
			}
		}
	}
}

// Len 返回队列长度
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
