package dict

import (
	"fmt"
	"io"
	"strings"
)

// Index wire format delimiters: each searchable text unit is followed
// by 0x1F and the matching record identifier, terminated by 0x1E.
const (
	unitSep   = 0x1F
	recordSep = 0x1E
)

// searchLimit caps the number of unique identifiers per search.
const searchLimit = 10

// Index is the in-memory substring search index. It is loaded once
// per session and is immutable afterwards, so it may be shared freely
// across goroutines.
type Index struct {
	blob string
}

// LoadIndex reads the whole index blob into memory.
func LoadIndex(r io.Reader) (*Index, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return NewIndex(string(blob)), nil
}

// NewIndex wraps an already-loaded index blob.
func NewIndex(blob string) *Index {
	return &Index{blob: blob}
}

// Search scans the blob for the literal substring query (after
// normalization) and returns up to 10 unique record identifiers in
// first-occurrence order. A hit is counted only when the next unit
// separator precedes the next record separator; otherwise the query
// matched inside an identifier rather than display text and the hit
// is discarded. Results are not relevance-ranked.
func (ix *Index) Search(query string) []string {
	query = Normalize(query)
	if query == "" {
		return nil
	}

	var results []string
	start := 0
	for len(results) < searchLimit {
		i := strings.Index(ix.blob[start:], query)
		if i < 0 {
			break
		}
		i += start

		unit := strings.IndexByte(ix.blob[i:], unitSep)
		record := strings.IndexByte(ix.blob[i:], recordSep)
		if unit < 0 || record < 0 {
			break
		}
		unit += i
		record += i

		if record < unit {
			// The match landed inside an identifier, not text.
			start = record + 1
			continue
		}

		id := ix.blob[unit+1 : record]
		if !contains(results, id) {
			results = append(results, id)
		}
		start = record + 1
	}

	return results
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
