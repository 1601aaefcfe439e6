package view

import "sync"

// Feed fans reconciled snapshots out to UI watchers. It keeps a bounded
// backlog so a reconnecting stream can replay what it missed; slow watchers
// drop events instead of blocking the poll loop.
type Feed struct {
	mu       sync.Mutex
	max      int
	backlog  []Snapshot
	watchers map[chan Snapshot]struct{}
	closed   bool
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 128
	}
	return &Feed{
		max:      max,
		watchers: map[chan Snapshot]struct{}{},
	}
}

func (f *Feed) Publish(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.backlog = append(f.backlog, s)
	if len(f.backlog) > f.max {
		f.backlog = f.backlog[len(f.backlog)-f.max:]
	}
	for ch := range f.watchers {
		select {
		case ch <- s:
		default:
		}
	}
}

// ReplayAfter returns buffered snapshots with Seq greater than the given one.
func (f *Feed) ReplayAfter(seq uint64) []Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Snapshot, 0, len(f.backlog))
	for _, s := range f.backlog {
		if s.Seq > seq {
			out = append(out, s)
		}
	}
	return out
}

func (f *Feed) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.watchers[ch] = struct{}{}
	return ch
}

func (f *Feed) Unsubscribe(ch chan Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[ch]; ok {
		delete(f.watchers, ch)
		close(ch)
	}
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.watchers {
		close(ch)
		delete(f.watchers, ch)
	}
}
