package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/invpt/tanoko/pkg/dict"
	"github.com/invpt/tanoko/pkg/ingest"
)

// WriteWordsDSV frames every word entry as <id> 0x1F <json> 0x1E.
func WriteWordsDSV(w io.Writer, words []Word) error {
	for _, word := range words {
		if err := writeRecord(w, word.ID, word.Raw()); err != nil {
			return err
		}
	}
	return nil
}

// WriteKanjiDSV frames every character entry as <literal> 0x1F <json> 0x1E.
func WriteKanjiDSV(w io.Writer, chars []Character) error {
	for _, c := range chars {
		if err := writeRecord(w, c.Literal, c.Raw()); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, id string, raw json.RawMessage) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return fmt.Errorf("compact record %s: %w", id, err)
	}
	if _, err := fmt.Fprintf(w, "%s%c%s%c", id, ingest.FieldSep, compact.Bytes(), ingest.RecordSep); err != nil {
		return fmt.Errorf("write record %s: %w", id, err)
	}
	return nil
}

// indexEntry is one searchable text variant pointing at a word id.
type indexEntry struct {
	text     string
	wordID   string
	common   bool
	senseIdx int
}

// WriteIndex emits the search index blob: every writing variant and
// gloss of every word, normalized, as <text> 0x1F <id> 0x1E entries.
// Entries are ordered by text length, then commonness, then sense
// index, so short common spellings come first in blob scan order.
func WriteIndex(w io.Writer, words []Word) error {
	var entries []indexEntry

	for _, word := range words {
		seen := map[string]bool{}
		add := func(e indexEntry) {
			key := e.text + "\x00" + e.wordID
			if !seen[key] {
				seen[key] = true
				entries = append(entries, e)
			}
		}

		anyCommon := false
		for _, k := range word.Kanji {
			if k.Common {
				anyCommon = true
			}
			add(indexEntry{text: k.Text, wordID: word.ID, common: k.Common})
		}
		for _, k := range word.Kana {
			if k.Common {
				anyCommon = true
			}
			add(indexEntry{text: k.Text, wordID: word.ID, common: k.Common})
		}
		for senseIdx, sense := range word.Sense {
			for _, g := range sense.Gloss {
				add(indexEntry{text: g.Text, wordID: word.ID, common: anyCommon, senseIdx: senseIdx})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(entries[i].text), utf8.RuneCountInString(entries[j].text)
		if li != lj {
			return li < lj
		}
		if entries[i].common != entries[j].common {
			return entries[i].common
		}
		return entries[i].senseIdx < entries[j].senseIdx
	})

	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s%c%s%c", dict.Normalize(e.text), ingest.FieldSep, e.wordID, ingest.RecordSep); err != nil {
			return fmt.Errorf("write index entry: %w", err)
		}
	}
	return nil
}
