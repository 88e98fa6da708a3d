package sched

import "time"

// Set is a named group of actions that are cancelled together. Every action
// a Set schedules stays recorded until the Set is cancelled.
type Set struct {
	name    string
	s       *Scheduler
	handles []Handle
}

// NewSet creates an empty action-set on s.
func (s *Scheduler) NewSet(name string) *Set {
	return &Set{name: name, s: s}
}

// Name returns the set's name.
func (a *Set) Name() string {
	return a.name
}

// Once schedules a one-shot action belonging to the set.
func (a *Set) Once(delay time.Duration, fn Func) Handle {
	h := a.s.Once(delay, fn)
	a.handles = append(a.handles, h)
	return h
}

// Every schedules a repeating action belonging to the set.
func (a *Set) Every(period time.Duration, fn Func) Handle {
	h := a.s.Every(period, fn)
	a.handles = append(a.handles, h)
	return h
}

// Cancel cancels every action of the set that is still pending.
func (a *Set) Cancel() {
	a.s.CancelAll(a.handles)
	a.handles = a.handles[:0]
}

// Live returns the number of the set's actions still pending.
func (a *Set) Live() int {
	n := 0
	for _, h := range a.handles {
		if a.s.Pending(h) {
			n++
		}
	}
	return n
}
