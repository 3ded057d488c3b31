package arena

import "sync"

// SafeArena is a mutex-protected wrapper around Arena for concurrent access.
type SafeArena struct {
	mu sync.Mutex
	a  *Arena
}

// NewSafe creates a thread-safe arena.
func NewSafe(opts Options) (*SafeArena, error) {
	a, err := New(opts)
	if err != nil {
		return nil, err
	}
	return &SafeArena{a: a}, nil
}

// Begin thread-safely opens a scope.
func (s *SafeArena) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Begin()
}

// End thread-safely closes the innermost scope.
func (s *SafeArena) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.End()
}

// Alloc thread-safely allocates n bytes in the innermost scope.
func (s *SafeArena) Alloc(n int) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(n)
}

// Reset thread-safely closes every scope.
func (s *SafeArena) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// Release thread-safely returns all chunks.
func (s *SafeArena) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Release()
}

// Metrics thread-safely returns a snapshot of arena statistics.
func (s *SafeArena) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Metrics()
}
