// Package assets turns upstream jmdict-simplified / kanjidic2 JSON
// releases into the delimiter-framed dataset and index files the
// importer and search index consume.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
)

// Word is one jmdict-simplified entry, with the raw JSON kept
// alongside so the dataset payload can be written out verbatim.
type Word struct {
	ID    string    `json:"id"`
	Kanji []Element `json:"kanji"`
	Kana  []Element `json:"kana"`
	Sense []Sense   `json:"sense"`

	raw json.RawMessage
}

// Element is a kanji or kana writing variant.
type Element struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

// Sense is one meaning of a word.
type Sense struct {
	PartOfSpeech []string `json:"partOfSpeech"`
	Gloss        []Gloss  `json:"gloss"`
}

// Gloss is a translation within a sense.
type Gloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// Raw returns the entry's original JSON document.
func (w *Word) Raw() json.RawMessage { return w.raw }

// Character is one kanjidic2 entry; only the literal is interpreted,
// the rest stays opaque.
type Character struct {
	Literal string `json:"literal"`

	raw json.RawMessage
}

// Raw returns the character's original JSON document.
func (c *Character) Raw() json.RawMessage { return c.raw }

// LoadJMdict reads a jmdict-simplified file ({"words": [...]}).
func LoadJMdict(path string) ([]Word, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jmdict file: %w", err)
	}
	defer f.Close()

	var file struct {
		Words []json.RawMessage `json:"words"`
	}
	if err := json.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse jmdict file: %w", err)
	}

	words := make([]Word, 0, len(file.Words))
	for _, raw := range file.Words {
		var w Word
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("parse jmdict entry: %w", err)
		}
		w.raw = raw
		words = append(words, w)
	}
	return words, nil
}

// LoadKanjidic reads a kanjidic2 file ({"characters": [...]}).
func LoadKanjidic(path string) ([]Character, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kanjidic file: %w", err)
	}
	defer f.Close()

	var file struct {
		Characters []json.RawMessage `json:"characters"`
	}
	if err := json.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse kanjidic file: %w", err)
	}

	chars := make([]Character, 0, len(file.Characters))
	for _, raw := range file.Characters {
		var c Character
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse kanjidic entry: %w", err)
		}
		c.raw = raw
		chars = append(chars, c)
	}
	return chars, nil
}
