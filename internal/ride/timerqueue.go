package ride

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// TimerQueue 按到期时刻排序的唤醒队列。所有调度器的等待都汇聚到
// 这一个最小堆上，由单独的循环逐个触发，到期顺序确定、可在测试里回放。
type TimerQueue struct {
	mu   sync.Mutex
	heap wakeupHeap
	seq  uint64
	wake chan struct{}
}

// Wakeup 一次挂起的唤醒。Cancel 之后回调保证不再执行。
type Wakeup struct {
	at       time.Time
	seq      uint64
	fn       func()
	canceled bool
	index    int
}

func NewTimerQueue() *TimerQueue {
	return &TimerQueue{
		wake: make(chan struct{}, 1),
	}
}

// Schedule 注册 at 时刻的唤醒并返回句柄。回调在队列循环的 goroutine
// 上执行，不能长时间阻塞；耗时操作应自行切换 goroutine。
func (q *TimerQueue) Schedule(at time.Time, fn func()) *Wakeup {
	q.mu.Lock()
	q.seq++
	w := &Wakeup{at: at, seq: q.seq, fn: fn}
	heap.Push(&q.heap, w)
	q.mu.Unlock()

	q.signal()
	return w
}

// Cancel 撤销唤醒，幂等。进入回调之前调用即可保证回调不执行。
func (q *TimerQueue) Cancel(w *Wakeup) {
	if w == nil {
		return
	}

	q.mu.Lock()
	w.canceled = true
	q.mu.Unlock()

	q.signal()
}

// Run 队列主循环，阻塞运行直到 ctx 取消。
func (q *TimerQueue) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		fn, wait := q.next()
		if fn != nil {
			fn()
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// next 弹出一个已到期的回调；没有到期项时返回距队首的等待时长。
func (q *TimerQueue) next() (func(), time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for q.heap.Len() > 0 {
		head := q.heap[0]
		if head.canceled {
			heap.Pop(&q.heap)
			continue
		}
		if head.at.After(now) {
			return nil, head.at.Sub(now)
		}
		heap.Pop(&q.heap)
		return head.fn, 0
	}

	return nil, time.Hour
}

func (q *TimerQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// wakeupHeap 以 (at, seq) 为序的最小堆，seq 保证同刻先入先出。
type wakeupHeap []*Wakeup

func (h wakeupHeap) Len() int { return len(h) }

func (h wakeupHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h wakeupHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *wakeupHeap) Push(x any) {
	w := x.(*Wakeup)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *wakeupHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return w
}
