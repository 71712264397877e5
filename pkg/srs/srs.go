// Package srs owns the spaced-repetition review log. Review history
// is append-only per (type, id) and persisted as one state document;
// due/eligible status is always derived from it, never stored.
package srs

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/invpt/tanoko/pkg/kv"
)

// Type names a study set. Entries are keyed by (type, id).
type Type string

// TypeVocab is the vocabulary study set.
const TypeVocab Type = "jmdict-vocab"

// Review is one history event.
type Review struct {
	Time    time.Time `json:"time"`
	Success bool      `json:"success"`
}

// Entry holds the append-only review history for one studied item.
type Entry struct {
	History []Review `json:"history"`
}

// State is the full persisted review log, keyed by study-set type
// then item id.
type State map[Type]map[string]Entry

// stateKey is the single store key holding the whole state document.
const stateKey = "main"

// Srs is the review-log engine handle. All mutations go through it;
// the handle serializes the read-merge-write cycle on the state blob,
// so concurrent callers within one process cannot drop each other's
// updates. Cross-process writers are out of scope.
type Srs struct {
	store  *kv.Store
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	snapshot  Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
}

// Open loads the persisted state and computes the initial snapshot.
func Open(store *kv.Store) (*Srs, error) {
	return open(store, nil, time.Now)
}

func open(store *kv.Store, logger *log.Logger, now func() time.Time) (*Srs, error) {
	s := &Srs{
		store:     store,
		logger:    logger,
		now:       now,
		listeners: map[int]func(Snapshot){},
	}
	state, err := s.loadState()
	if err != nil {
		return nil, err
	}
	s.snapshot = ComputeSnapshot(s.now(), state)
	return s, nil
}

func (s *Srs) loadState() (State, error) {
	raw, ok, err := s.store.Get(kv.Srs, stateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return State{}, nil
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode review state: %w", err)
	}
	return state, nil
}

// Snapshot returns the latest materialized view.
func (s *Srs) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// AddListener registers fn for future snapshot changes and returns a
// removal function. Notification order across listeners is
// unspecified.
func (s *Srs) AddListener(fn func(Snapshot)) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Add starts tracking (typ, id) with an empty history. Adding an
// already-tracked entry leaves its history untouched.
func (s *Srs) Add(typ Type, id string) error {
	return s.mutate(func(state State) {
		if state[typ] == nil {
			state[typ] = map[string]Entry{}
		}
		if _, ok := state[typ][id]; !ok {
			state[typ][id] = Entry{History: []Review{}}
		}
	})
}

// Review appends one outcome at the current time to the entry's
// history. The entry should already exist via Add.
func (s *Srs) Review(typ Type, id string, success bool) error {
	return s.mutate(func(state State) {
		if state[typ] == nil {
			state[typ] = map[string]Entry{}
		}
		entry := state[typ][id]
		entry.History = append(entry.History, Review{Time: s.now(), Success: success})
		state[typ][id] = entry
	})
}

// mutate runs the whole read-merge-write cycle under the handle's
// mutex. The new state is persisted before the snapshot changes, so a
// store failure leaves both the persisted history and the observable
// snapshot as they were.
func (s *Srs) mutate(apply func(State)) error {
	s.mu.Lock()

	state, err := s.loadState()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	apply(state)

	raw, err := json.Marshal(state)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode review state: %w", err)
	}
	if err := s.store.Put(kv.Srs, stateKey, raw); err != nil {
		s.mu.Unlock()
		return err
	}

	s.snapshot = ComputeSnapshot(s.now(), state)
	snapshot := s.snapshot
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Listeners run outside the lock so they may call back into the
	// handle.
	for _, fn := range fns {
		fn(snapshot)
	}
	return nil
}
