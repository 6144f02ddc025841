// Package store holds the in-memory session state: outward file batches
// and the shared text history. State lives for the process lifetime only.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/metrics"
)

// ErrNotFound is returned for lookups against unknown or evicted ids.
var ErrNotFound = errors.New("not found")

const (
	DefaultMaxBatches = 10
	DefaultMaxTexts   = 20
)

// FileInput describes a file the desktop user wants to share.
type FileInput struct {
	Name string
	Path string
	Size int64
}

// FileEntry is one shared file inside a batch. Immutable after creation.
type FileEntry struct {
	ID   string
	Name string
	Path string
	Size int64
}

// Batch is one atomic group of files shared together. Immutable after
// creation; it only ever disappears as a whole via eviction or Clear.
type Batch struct {
	ID        string
	CreatedAt time.Time
	Files     []FileEntry
}

// TextEntry is one shared text snippet. Immutable after creation.
type TextEntry struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// Snapshot is the full current state, used to resynchronize newly
// connected clients. Batches are in insertion order (oldest first), texts
// most-recent-first.
type Snapshot struct {
	Batches []*Batch
	Texts   []*TextEntry
}

// Store is the transfer store. One mutex guards both collections; every
// mutation is a single atomic operation under it.
type Store struct {
	mu         sync.Mutex
	order      []string // batch ids, oldest first
	batches    map[string]*Batch
	texts      []*TextEntry // most recent first
	maxBatches int
	maxTexts   int
	ids        IDGenerator
	bus        *event.Bus
	metrics    *metrics.Metrics
}

// Config holds store construction parameters.
type Config struct {
	MaxBatches int
	MaxTexts   int
	IDs        IDGenerator
	Bus        *event.Bus
	Metrics    *metrics.Metrics
}

// New creates an empty store.
func New(cfg Config) *Store {
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = DefaultMaxBatches
	}
	if cfg.MaxTexts <= 0 {
		cfg.MaxTexts = DefaultMaxTexts
	}
	if cfg.IDs == nil {
		cfg.IDs = NewUUIDGenerator()
	}
	if cfg.Bus == nil {
		cfg.Bus = event.NewBus()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}

	return &Store{
		batches:    make(map[string]*Batch),
		maxBatches: cfg.MaxBatches,
		maxTexts:   cfg.MaxTexts,
		ids:        cfg.IDs,
		bus:        cfg.Bus,
		metrics:    cfg.Metrics,
	}
}

// Bus returns the event bus mutations publish on.
func (s *Store) Bus() *event.Bus {
	return s.bus
}

// CreateBatch wraps files into a new batch with fresh ids, inserts it and
// evicts the oldest batch past the cap. The evicted batch's source files
// are user-owned and stay on disk.
func (s *Store) CreateBatch(files []FileInput) *Batch {
	batch := &Batch{
		ID:        s.ids.NewID(),
		CreatedAt: time.Now(),
		Files:     make([]FileEntry, 0, len(files)),
	}
	for _, f := range files {
		batch.Files = append(batch.Files, FileEntry{
			ID:   s.ids.NewID(),
			Name: f.Name,
			Path: f.Path,
			Size: f.Size,
		})
	}

	s.mu.Lock()
	s.order = append(s.order, batch.ID)
	s.batches[batch.ID] = batch

	if len(s.order) > s.maxBatches {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.batches, oldest)
		s.metrics.BatchesEvictedTotal.Inc()
	}
	s.mu.Unlock()

	s.metrics.BatchesCreatedTotal.Inc()
	s.bus.Publish(event.Event{Kind: event.KindBatchCreated, Payload: batch})

	return batch
}

// RecordText inserts a text entry at the head of the history and
// truncates the tail past the cap.
func (s *Store) RecordText(content string) *TextEntry {
	entry := &TextEntry{
		ID:        s.ids.NewID(),
		Content:   content,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.texts = append([]*TextEntry{entry}, s.texts...)
	if len(s.texts) > s.maxTexts {
		s.texts = s.texts[:s.maxTexts]
	}
	s.mu.Unlock()

	s.metrics.TextsRecordedTotal.Inc()
	s.bus.Publish(event.Event{Kind: event.KindTextRecorded, Payload: entry})

	return entry
}

// Clear empties both collections. Files already on disk are untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	s.order = nil
	s.batches = make(map[string]*Batch)
	s.texts = nil
	s.mu.Unlock()

	s.metrics.HistoryClearsTotal.Inc()
	s.bus.Publish(event.Event{Kind: event.KindHistoryCleared})
}

// GetBatch looks up a batch by id.
func (s *Store) GetBatch(id string) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return batch, nil
}

// GetFile looks up one file within a batch. A file in an evicted batch is
// not found, never a stale path.
func (s *Store) GetFile(batchID, fileID string) (FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[batchID]
	if !ok {
		return FileEntry{}, ErrNotFound
	}
	for _, f := range batch.Files {
		if f.ID == fileID {
			return f, nil
		}
	}
	return FileEntry{}, ErrNotFound
}

// Snapshot returns the full current state for client replay.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Batches: make([]*Batch, 0, len(s.order)),
		Texts:   make([]*TextEntry, 0, len(s.texts)),
	}
	for _, id := range s.order {
		snap.Batches = append(snap.Batches, s.batches[id])
	}
	snap.Texts = append(snap.Texts, s.texts...)

	return snap
}

// BatchCount returns the number of live batches.
func (s *Store) BatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// TextCount returns the number of live text entries.
func (s *Store) TextCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}
