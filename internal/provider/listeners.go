package provider

import "sync"

type listenerSet[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
	// onChange observes the listener count after every add/remove.
	onChange func(n int)
}

func (s *listenerSet[T]) add(fn func(T)) Subscription {
	s.mu.Lock()
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn
	n := len(s.fns)
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(n)
	}
	return &subscription{unsubscribe: func() { s.remove(id) }}
}

func (s *listenerSet[T]) remove(id int) {
	s.mu.Lock()
	delete(s.fns, id)
	n := len(s.fns)
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(n)
	}
}

func (s *listenerSet[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// emit calls listeners outside the lock so they may unsubscribe themselves.
func (s *listenerSet[T]) emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}
