// Package dict exposes the offline dictionary behind a single
// asynchronous API. Opening a Dict kicks off exactly one background
// import of the word and character datasets plus the search index
// load; queries issued before the service is ready block until it is.
package dict

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/invpt/tanoko/pkg/ingest"
	"github.com/invpt/tanoko/pkg/kv"
)

// StatusKind enumerates the three service states.
type StatusKind int

const (
	// StatusLoading means the import is still running.
	StatusLoading StatusKind = iota
	// StatusReady means all datasets are imported and the index is
	// loaded.
	StatusReady
	// StatusFailure is terminal: the service stays failed and
	// surfaces Err to every caller.
	StatusFailure
)

// Status describes the service state published to subscribers.
type Status struct {
	Kind StatusKind
	// ItemsLoaded is the running imported-record counter while
	// loading, and the total once ready.
	ItemsLoaded int
	Err         error
}

// Record pairs an identifier with its raw stored payload.
type Record struct {
	ID      string
	Payload []byte
}

// Config configures a Dict.
type Config struct {
	Store *kv.Store
	// Source identifiers for the two datasets and the index blob.
	// They double as import markers: an unchanged identifier skips
	// the import.
	WordsSrc string
	KanjiSrc string
	IndexSrc string
	// Fetch overrides the asset fetcher. nil means ingest.Fetch.
	Fetch  ingest.FetchFunc
	Logger *log.Logger
}

// Dict is the dictionary service handle.
type Dict struct {
	store  *kv.Store
	logger *log.Logger

	mu        sync.Mutex
	status    Status
	index     *Index
	listeners map[int]func(Status)
	nextID    int

	ready chan struct{} // closed on either terminal state
}

type workerMsg struct {
	kind  StatusKind
	items int
	err   error
	index *Index
}

// Open constructs the service and starts its single import worker.
// Open itself returns immediately; use Status or a listener to track
// progress. Each handle owns its own lifecycle, so callers decide how
// widely to share it.
func Open(ctx context.Context, cfg Config) (*Dict, error) {
	if cfg.Store == nil {
		return nil, errors.New("dict: Config.Store is required")
	}
	d := &Dict{
		store:     cfg.Store,
		logger:    cfg.Logger,
		status:    Status{Kind: StatusLoading},
		listeners: map[int]func(Status){},
		ready:     make(chan struct{}),
	}

	// The worker goroutine owns the ingest pipeline exclusively; the
	// coordinator goroutine owns status transitions. They share
	// nothing but the message channel, which preserves send order.
	msgs := make(chan workerMsg)
	go d.runWorker(ctx, cfg, msgs)
	go d.coordinate(msgs)

	return d, nil
}

func (d *Dict) runWorker(ctx context.Context, cfg Config, msgs chan<- workerMsg) {
	defer close(msgs)

	fetch := cfg.Fetch
	if fetch == nil {
		fetch = ingest.Fetch
	}

	// The index is read-only and independent of the store, so it
	// loads concurrently with the import.
	type indexResult struct {
		index *Index
		err   error
	}
	indexCh := make(chan indexResult, 1)
	go func() {
		rc, err := fetch(ctx, cfg.IndexSrc)
		if err != nil {
			indexCh <- indexResult{err: err}
			return
		}
		defer rc.Close()
		ix, err := LoadIndex(rc)
		indexCh <- indexResult{index: ix, err: err}
	}()

	im := &ingest.Importer{Store: d.store, Fetch: fetch, Logger: d.logger}

	im.OnProgress = func(n int) {
		msgs <- workerMsg{kind: StatusLoading, items: n}
	}
	words, err := im.Run(ctx, kv.Words, cfg.WordsSrc)
	if err != nil {
		msgs <- workerMsg{kind: StatusFailure, err: err}
		return
	}

	im.OnProgress = func(n int) {
		msgs <- workerMsg{kind: StatusLoading, items: words + n}
	}
	kanji, err := im.Run(ctx, kv.Kanji, cfg.KanjiSrc)
	if err != nil {
		msgs <- workerMsg{kind: StatusFailure, err: err}
		return
	}

	ir := <-indexCh
	if ir.err != nil {
		msgs <- workerMsg{kind: StatusFailure, err: ir.err}
		return
	}

	msgs <- workerMsg{kind: StatusReady, items: words + kanji, index: ir.index}
}

func (d *Dict) coordinate(msgs <-chan workerMsg) {
	for m := range msgs {
		switch m.kind {
		case StatusLoading:
			d.publish(Status{Kind: StatusLoading, ItemsLoaded: m.items}, nil)
		case StatusReady:
			d.publish(Status{Kind: StatusReady, ItemsLoaded: m.items}, m.index)
			close(d.ready)
			return
		case StatusFailure:
			if d.logger != nil {
				d.logger.Printf("dictionary load failed: %v", m.err)
			}
			d.publish(Status{Kind: StatusFailure, Err: m.err}, nil)
			close(d.ready)
			return
		}
	}
}

func (d *Dict) publish(status Status, index *Index) {
	d.mu.Lock()
	d.status = status
	if index != nil {
		d.index = index
	}
	fns := make([]func(Status), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	// Notification order across listeners is unspecified.
	for _, fn := range fns {
		fn(status)
	}
}

// Status returns the current service state.
func (d *Dict) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// AddStatusListener registers fn for future status changes and
// returns a function that removes it.
func (d *Dict) AddStatusListener(fn func(Status)) (remove func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// Wait blocks until the service reaches a terminal state: nil once
// ready, or the sticky failure error.
func (d *Dict) Wait(ctx context.Context) error {
	return d.await(ctx)
}

// await blocks until the service reaches a terminal state, then
// returns nil when ready or the sticky failure error.
func (d *Dict) await(ctx context.Context) error {
	select {
	case <-d.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status.Kind == StatusFailure {
		return fmt.Errorf("dictionary unavailable: %w", d.status.Err)
	}
	return nil
}

// Search resolves query to up to 10 word records. Identifiers in the
// index with no stored record are skipped.
func (d *Dict) Search(ctx context.Context, query string) ([]Record, error) {
	if err := d.await(ctx); err != nil {
		return nil, err
	}

	var results []Record
	for _, id := range d.index.Search(query) {
		payload, ok, err := d.store.Get(kv.Words, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			if d.logger != nil {
				d.logger.Printf("ignoring search result %s with no dictionary entry", id)
			}
			continue
		}
		results = append(results, Record{ID: id, Payload: payload})
	}
	return results, nil
}

// LoadWord returns the raw word record for id, or nil when there is
// none. A missing record is not an error.
func (d *Dict) LoadWord(ctx context.Context, id string) ([]byte, error) {
	if err := d.await(ctx); err != nil {
		return nil, err
	}
	payload, _, err := d.store.Get(kv.Words, id)
	return payload, err
}

// LoadKanji returns the raw character record for literal, or nil when
// there is none.
func (d *Dict) LoadKanji(ctx context.Context, literal string) ([]byte, error) {
	if err := d.await(ctx); err != nil {
		return nil, err
	}
	payload, _, err := d.store.Get(kv.Kanji, literal)
	return payload, err
}
