// Package scheduler runs one-shot callbacks on a simulation clock that only
// moves when the owner advances it.
package scheduler

import (
	"container/heap"
	"math"
	"sync"
)

// tolerance is the relative slack allowed when comparing a deadline against
// the clock. Summing fixed steps drifts below the exact multiple, e.g. 300
// steps of 0.01 reach 2.99999999999998.
const tolerance = 1e-9

// TimerID identifies a scheduled callback. The zero value is never issued.
type TimerID uint64

type timer struct {
	id       TimerID
	deadline float64
	seq      uint64
	fn       func()
	index    int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline == h[j].deadline {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline < h[j].deadline
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Timers is a cancellable one-shot timer set. It is safe for concurrent use;
// callbacks run on the goroutine calling Advance, outside the internal lock,
// so they may schedule or cancel timers.
type Timers struct {
	mu     sync.Mutex
	now    float64
	nextID TimerID
	seq    uint64
	queue  timerHeap
	byID   map[TimerID]*timer
}

// New creates an empty timer set at time zero.
func New() *Timers {
	return &Timers{byID: make(map[TimerID]*timer)}
}

// Now returns the current simulation time.
func (t *Timers) Now() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// Pending returns the number of timers that have not fired or been cancelled.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// ScheduleOnce runs fn once the clock has advanced by delay.
// Timers with equal deadlines fire in scheduling order.
func (t *Timers) ScheduleOnce(delay float64, fn func()) TimerID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	t.seq++
	tm := &timer{
		id:       t.nextID,
		deadline: t.now + max(delay, 0),
		seq:      t.seq,
		fn:       fn,
	}
	heap.Push(&t.queue, tm)
	t.byID[tm.id] = tm
	return tm.id
}

// Cancel removes a pending timer. It reports false if the timer already
// fired, was cancelled or never existed.
func (t *Timers) Cancel(id TimerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tm, ok := t.byID[id]
	if !ok {
		return false
	}
	delete(t.byID, id)
	heap.Remove(&t.queue, tm.index)
	return true
}

// Advance moves the clock forward by dt and runs every timer that became due,
// in deadline order. It returns the number of callbacks run.
func (t *Timers) Advance(dt float64) int {
	t.mu.Lock()
	t.now += max(dt, 0)
	t.mu.Unlock()

	fired := 0
	for {
		fn := t.popDue()
		if fn == nil {
			return fired
		}
		fn()
		fired++
	}
}

func (t *Timers) popDue() func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 || !due(t.queue[0].deadline, t.now) {
		return nil
	}
	tm := heap.Pop(&t.queue).(*timer)
	delete(t.byID, tm.id)
	if tm.fn == nil {
		return func() {}
	}
	return tm.fn
}

func due(deadline, now float64) bool {
	return deadline <= now+tolerance*math.Max(1, math.Abs(now))
}
