// Package sched is a cooperative, single-threaded timer multiplexer.
//
// Callbacks run only from Tick, on the caller's goroutine, in deadline order
// (ties broken by scheduling order). There are no goroutines and no locks:
// the scheduler must be owned by one control loop.
package sched

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled action. The zero Handle is never issued.
type Handle uint64

// Func is a scheduled callback. now is the time passed to the Tick that fired it.
type Func func(now time.Time)

type entry struct {
	handle   Handle
	deadline time.Time
	period   time.Duration // 0 for one-shot
	seq      uint64        // scheduling order, for ties
	fn       Func
	index    int
}

// Scheduler runs one-shot and repeating callbacks against an advancing clock.
type Scheduler struct {
	now     time.Time
	next    Handle
	seq     uint64
	queue   queue
	live    map[Handle]*entry
	ticking bool
	added   []*entry // scheduled during the current Tick
}

// New creates a Scheduler whose clock starts at start.
func New(start time.Time) *Scheduler {
	return &Scheduler{
		now:  start,
		live: make(map[Handle]*entry),
	}
}

// Now returns the time of the last Tick (or the start time).
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Once schedules fn to run once, delay after the current clock.
func (s *Scheduler) Once(delay time.Duration, fn Func) Handle {
	return s.add(delay, 0, fn)
}

// Every schedules fn to run every period, the first time one period from now.
// A non-positive period fires at most once per Tick.
func (s *Scheduler) Every(period time.Duration, fn Func) Handle {
	if period <= 0 {
		period = time.Nanosecond
	}
	return s.add(period, period, fn)
}

func (s *Scheduler) add(delay, period time.Duration, fn Func) Handle {
	if delay < 0 {
		delay = 0
	}
	s.next++
	s.seq++
	e := &entry{
		handle:   s.next,
		deadline: s.now.Add(delay),
		period:   period,
		seq:      s.seq,
		fn:       fn,
		index:    -1,
	}
	s.live[e.handle] = e
	if s.ticking {
		// Not eligible until the next Tick
		s.added = append(s.added, e)
	} else {
		heap.Push(&s.queue, e)
	}
	return e.handle
}

// Cancel removes a pending action. Unknown, fired or already cancelled
// handles are ignored. Cancellation is immediate, even for an action that
// is due in the Tick currently running.
func (s *Scheduler) Cancel(h Handle) {
	e, ok := s.live[h]
	if !ok {
		return
	}
	delete(s.live, h)
	if e.index >= 0 && e.index < len(s.queue) && s.queue[e.index] == e {
		heap.Remove(&s.queue, e.index)
	}
}

// CancelAll cancels every handle in hs.
func (s *Scheduler) CancelAll(hs []Handle) {
	for _, h := range hs {
		s.Cancel(h)
	}
}

// Pending reports whether h is still scheduled.
func (s *Scheduler) Pending(h Handle) bool {
	_, ok := s.live[h]
	return ok
}

// Len returns the number of scheduled actions.
func (s *Scheduler) Len() int {
	return len(s.live)
}

// Tick advances the clock to now and fires every action whose deadline has
// passed. Actions scheduled by a callback are not fired before the next Tick.
// A clock that moves backwards is held at its previous value.
func (s *Scheduler) Tick(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
	if s.ticking {
		return // re-entrant call from a callback
	}
	s.ticking = true
	defer s.endTick()

	for len(s.queue) > 0 && !s.queue[0].deadline.After(s.now) {
		e := heap.Pop(&s.queue).(*entry)
		if _, ok := s.live[e.handle]; !ok {
			continue
		}
		if e.period > 0 {
			e.deadline = e.deadline.Add(e.period)
			s.seq++
			e.seq = s.seq
			s.added = append(s.added, e)
		} else {
			delete(s.live, e.handle)
		}
		e.fn(s.now)
	}
}

func (s *Scheduler) endTick() {
	s.ticking = false
	for _, e := range s.added {
		if _, ok := s.live[e.handle]; ok {
			heap.Push(&s.queue, e)
		}
	}
	s.added = s.added[:0]
}

// queue is a min-heap of entries ordered by deadline, then scheduling order.
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].seq < q[j].seq
	}
	return q[i].deadline.Before(q[j].deadline)
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
