package table

import "sync"

// Selector is the one shared mutable piece of UI state: which game is on
// screen. One writer, many readers, last write wins; subscribers hear about
// every change.
type Selector struct {
	mu       sync.Mutex
	current  string
	watchers map[chan string]struct{}
}

func NewSelector() *Selector {
	return &Selector{watchers: map[chan string]struct{}{}}
}

func (s *Selector) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Selector) Select(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == gameID {
		return
	}
	s.current = gameID
	for ch := range s.watchers {
		select {
		case ch <- gameID:
		default:
		}
	}
}

func (s *Selector) Subscribe() chan string {
	ch := make(chan string, 4)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[ch] = struct{}{}
	return ch
}

func (s *Selector) Unsubscribe(ch chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watchers[ch]; ok {
		delete(s.watchers, ch)
		close(ch)
	}
}
