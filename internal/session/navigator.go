package session

import "sync"

// MemoryNavigator is a Navigator without a screen, for headless front-ends.
type MemoryNavigator struct {
	mu      sync.Mutex
	current Route
}

// NewMemoryNavigator returns a navigator showing nothing.
func NewMemoryNavigator() *MemoryNavigator {
	return &MemoryNavigator{}
}

func (n *MemoryNavigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *MemoryNavigator) Replace(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = r
}
