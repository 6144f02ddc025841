// Package received tracks files uploaded by LAN peers. The registry is
// separate from the outward batch history: received files surface to the
// desktop UI only and have their own retention lifecycle.
package received

import (
	"sync"
	"time"
)

// File is one file a LAN peer uploaded to this host.
type File struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Registry is the in-memory list of received files, newest last.
type Registry struct {
	mu    sync.Mutex
	files []File
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add records a received file.
func (r *Registry) Add(f File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, f)
}

// List returns a copy of all tracked files.
func (r *Registry) List() []File {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]File, len(r.files))
	copy(out, r.files)
	return out
}

// Remove drops the entry whose path matches. Returns true if found.
func (r *Registry) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.files {
		if f.Path == path {
			r.files = append(r.files[:i], r.files[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveOlderThan drops entries received before cutoff and returns them.
func (r *Registry) RemoveOlderThan(cutoff time.Time) []File {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept, dropped []File
	for _, f := range r.files {
		if f.ReceivedAt.Before(cutoff) {
			dropped = append(dropped, f)
		} else {
			kept = append(kept, f)
		}
	}
	r.files = kept
	return dropped
}

// Count returns the number of tracked files.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}
