package onboarding

import "sync"

// Registry holds the live wizard of each browser tab.
type Registry struct {
	mu      sync.Mutex
	wizards map[string]*Wizard
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{wizards: make(map[string]*Wizard)}
}

// Key identifies the wizard of one tab of one device.
func Key(deviceID, tabID string) string {
	return deviceID + "/" + tabID
}

// Get returns the wizard stored under key.
func (r *Registry) Get(key string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wizards[key]
	return w, ok
}

// Put stores w under key, abandoning any previous run.
func (r *Registry) Put(key string, w *Wizard) {
	r.mu.Lock()
	r.wizards[key] = w
	r.mu.Unlock()
}

// Discard drops the wizard stored under key.
func (r *Registry) Discard(key string) {
	r.mu.Lock()
	delete(r.wizards, key)
	r.mu.Unlock()
}

// DiscardDevice drops every wizard of a device.
func (r *Registry) DiscardDevice(deviceID string) int {
	prefix := deviceID + "/"
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.wizards {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(r.wizards, key)
			n++
		}
	}
	return n
}
