package curriculum

import "sync"

// Directory keeps one Store per learner. Stores are created on first use
// and live for the lifetime of the process.
type Directory struct {
	mu     sync.Mutex
	stores map[string]*Store
	seed   func() *Store
}

// NewDirectory creates an empty directory whose stores use the 30-day plan.
func NewDirectory() *Directory {
	return &Directory{stores: make(map[string]*Store), seed: New}
}

// For returns the learner's store, creating it if needed.
func (d *Directory) For(learnerID string) *Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stores[learnerID]
	if !ok {
		s = d.seed()
		d.stores[learnerID] = s
	}
	return s
}

// Len returns the number of learners seen.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stores)
}
