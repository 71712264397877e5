package ingest

import "errors"

// ErrFetch indicates the source asset could not be retrieved or the
// transfer broke mid-stream.
var ErrFetch = errors.New("ingest: fetch failed")

// ErrDecode indicates the stream was malformed: a complete record was
// missing its field separator.
var ErrDecode = errors.New("ingest: malformed record stream")
