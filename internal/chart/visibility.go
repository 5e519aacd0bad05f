package chart

import "sync"

// Visibility tracks which core series are shown. Cores are visible unless
// hidden, so cores discovered later start out visible.
type Visibility struct {
	mu     sync.RWMutex
	hidden map[int]bool
}

// NewVisibility returns a visibility set with every core shown
func NewVisibility() *Visibility {
	return &Visibility{hidden: make(map[int]bool)}
}

// Visible reports whether core is shown
func (v *Visibility) Visible(core int) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.hidden[core]
}

// Toggle flips a single core
func (v *Visibility) Toggle(core int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.hidden[core] {
		delete(v.hidden, core)
	} else {
		v.hidden[core] = true
	}
}

// Solo shows core and hides every other core in cores
func (v *Visibility) Solo(core int, cores []int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.hidden)
	for _, c := range cores {
		if c != core {
			v.hidden[c] = true
		}
	}
}

// Exclude hides core and shows every other core
func (v *Visibility) Exclude(core int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.hidden)
	v.hidden[core] = true
}

// ShowAll makes every core visible
func (v *Visibility) ShowAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.hidden)
}

// Only shows exactly the listed cores out of cores. An empty list shows all.
func (v *Visibility) Only(show []int, cores []int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.hidden)
	if len(show) == 0 {
		return
	}
	keep := make(map[int]bool, len(show))
	for _, c := range show {
		keep[c] = true
	}
	for _, c := range cores {
		if !keep[c] {
			v.hidden[c] = true
		}
	}
}
