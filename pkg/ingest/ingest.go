// Package ingest streams a bulk dictionary asset into one store
// namespace. The asset is a byte stream of records, each record being
// an identifier and an opaque payload separated by 0x1F, with records
// terminated by 0x1E. Records are written in per-chunk atomic batches,
// and the namespace's import marker is written only after the whole
// stream has been consumed, so a failed import simply reruns from
// scratch.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/invpt/tanoko/pkg/kv"
)

const (
	// RecordSep terminates each record in the asset stream.
	RecordSep = 0x1E
	// FieldSep separates a record's identifier from its payload.
	FieldSep = 0x1F
)

// FetchFunc opens the byte stream for a source identifier.
type FetchFunc func(ctx context.Context, src string) (io.ReadCloser, error)

// Fetch opens src as an HTTP(S) URL or, failing that prefix, as a
// local file path.
func Fetch(ctx context.Context, src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}
	return resp.Body, nil
}

// Importer streams one asset per Run call into a store namespace.
// Callers must not run two imports for the same namespace
// concurrently; the dict service enforces single-flight.
type Importer struct {
	Store *kv.Store
	// Fetch opens source streams. nil means the default Fetch.
	Fetch FetchFunc
	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// OnProgress is called with a monotonically increasing imported
	// record count, throttled to once per ProgressEvery records.
	OnProgress func(imported int)
	// ProgressEvery throttles OnProgress. Defaults to 10000.
	ProgressEvery int
	// ChunkSize is the read buffer size. Defaults to 64 KiB.
	ChunkSize int
}

// Run imports src into ns. When the namespace's import marker already
// equals src the run is a no-op and the existing record count is
// returned. The returned count is the number of records imported (or
// already present on the no-op path).
func (im *Importer) Run(ctx context.Context, ns kv.Namespace, src string) (int, error) {
	marker, err := im.Store.Marker(ns)
	if err != nil {
		return 0, err
	}
	if marker == src {
		if im.Logger != nil {
			im.Logger.Printf("%s already imported from %s, skipping", ns, src)
		}
		return im.Store.Count(ns)
	}

	every := im.ProgressEvery
	if every <= 0 {
		every = 10000
	}
	chunkSize := im.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}

	fetch := im.Fetch
	if fetch == nil {
		fetch = Fetch
	}
	body, err := fetch(ctx, src)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if im.OnProgress != nil {
		im.OnProgress(0)
	}

	var (
		imported     int
		lastReported int
		marginal     []byte // partial record carried across chunks
		chunk        = make([]byte, chunkSize)
	)

	// The previous batch's commit runs concurrently with the next
	// read. Receiving from commitDone before starting a new commit
	// guarantees at most one uncommitted batch in flight per
	// namespace.
	commitDone := make(chan error, 1)
	commitDone <- nil

	for {
		n, readErr := body.Read(chunk)

		batch := im.Store.NewBatch(ns)
		if n > 0 {
			buf := chunk[:n]
			for {
				end := bytes.IndexByte(buf, RecordSep)
				if end < 0 {
					marginal = append(marginal, buf...)
					break
				}
				record := buf[:end]
				buf = buf[end+1:]
				if len(marginal) > 0 {
					record = append(marginal, record...)
					marginal = nil
				}
				id, payload, ok := bytes.Cut(record, []byte{FieldSep})
				if !ok {
					<-commitDone
					return imported, fmt.Errorf("%w: record %d has no field separator", ErrDecode, imported)
				}
				batch.Put(string(id), append([]byte(nil), payload...))
				imported++
			}
		}

		if err := <-commitDone; err != nil {
			return imported, err
		}
		if im.OnProgress != nil && imported-lastReported >= every {
			im.OnProgress(imported)
			lastReported = imported
		}

		if readErr == io.EOF {
			if err := im.Store.Commit(batch); err != nil {
				return imported, err
			}
			break
		}
		if readErr != nil {
			return imported, fmt.Errorf("%w: %v", ErrFetch, readErr)
		}

		go func(b *kv.Batch) { commitDone <- im.Store.Commit(b) }(batch)
	}

	if len(marginal) > 0 && im.Logger != nil {
		im.Logger.Printf("%s: ignoring %d trailing bytes with no record terminator", ns, len(marginal))
	}

	// The marker makes the namespace eligible for the fast no-op path
	// on the next run. Written only after every batch has committed.
	if err := im.Store.SetMarker(ns, src); err != nil {
		return imported, err
	}

	if im.Logger != nil {
		im.Logger.Printf("%s: imported %d records from %s", ns, imported, src)
	}
	return imported, nil
}
