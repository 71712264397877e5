package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/invpt/tanoko/pkg/dict"
)

const sampleJMdict = `{
  "words": [
    {
      "id": "1000001",
      "kanji": [{"text": "犬", "common": true}],
      "kana": [{"text": "いぬ", "common": true}],
      "sense": [{"partOfSpeech": ["n"], "gloss": [{"text": "dog", "lang": "eng"}]}]
    },
    {
      "id": "1000002",
      "kanji": [],
      "kana": [{"text": "ねこじゃらし", "common": false}],
      "sense": [{"partOfSpeech": ["n"], "gloss": [{"text": "foxtail", "lang": "eng"}]}]
    }
  ]
}`

const sampleKanjidic = `{
  "characters": [
    {"literal": "犬", "misc": {"grade": 1}},
    {"literal": "猫", "misc": {"grade": 8}}
  ]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

func TestLoadJMdict(t *testing.T) {
	words, err := LoadJMdict(writeTemp(t, "jmdict.json", sampleJMdict))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].ID != "1000001" || words[0].Kanji[0].Text != "犬" {
		t.Fatalf("unexpected first word: %+v", words[0])
	}
	if !strings.Contains(string(words[0].Raw()), `"id": "1000001"`) {
		t.Fatalf("raw JSON not preserved: %s", words[0].Raw())
	}
}

func TestWriteWordsDSV(t *testing.T) {
	words, err := LoadJMdict(writeTemp(t, "jmdict.json", sampleJMdict))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteWordsDSV(&buf, words); err != nil {
		t.Fatalf("write: %v", err)
	}

	records := strings.Split(strings.TrimSuffix(buf.String(), "\x1e"), "\x1e")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	id, payload, ok := strings.Cut(records[0], "\x1f")
	if !ok || id != "1000001" {
		t.Fatalf("bad record framing: %q", records[0])
	}
	// Payload is compacted JSON.
	if strings.Contains(payload, "\n") || !strings.Contains(payload, `"id":"1000001"`) {
		t.Fatalf("payload not compact JSON: %q", payload)
	}
}

func TestWriteKanjiDSV(t *testing.T) {
	chars, err := LoadKanjidic(writeTemp(t, "kanjidic.json", sampleKanjidic))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteKanjiDSV(&buf, chars); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "犬\x1f") {
		t.Fatalf("expected literal key framing, got %q", buf.String()[:12])
	}
}

func TestWriteIndexOrderingAndNormalization(t *testing.T) {
	words, err := LoadJMdict(writeTemp(t, "jmdict.json", sampleJMdict))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteIndex(&buf, words); err != nil {
		t.Fatalf("write index: %v", err)
	}

	entries := strings.Split(strings.TrimSuffix(buf.String(), "\x1e"), "\x1e")
	var texts []string
	for _, e := range entries {
		text, _, ok := strings.Cut(e, "\x1f")
		if !ok {
			t.Fatalf("bad index framing: %q", e)
		}
		texts = append(texts, text)
	}

	// Shorter texts first; among equal lengths common entries first.
	want := []string{"犬", "いぬ", "dog", "ねこじゃらし", "foxtail"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("index order: got %v, want %v", texts, want)
	}
}

func TestWriteIndexSearchableEndToEnd(t *testing.T) {
	words, err := LoadJMdict(writeTemp(t, "jmdict.json", sampleJMdict))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteIndex(&buf, words); err != nil {
		t.Fatalf("write index: %v", err)
	}

	ix := dict.NewIndex(buf.String())
	// Katakana query must match normalized kana text.
	if got := ix.Search("イヌ"); !reflect.DeepEqual(got, []string{"1000001"}) {
		t.Fatalf("search イヌ: %v", got)
	}
	if got := ix.Search("fox"); !reflect.DeepEqual(got, []string{"1000002"}) {
		t.Fatalf("search fox: %v", got)
	}
}

func TestWriteIndexDedupesVariants(t *testing.T) {
	// Same text appearing as both kana variant and gloss of one word
	// produces a single entry.
	jm := `{"words": [{
      "id": "1",
      "kanji": [],
      "kana": [{"text": "テスト", "common": true}, {"text": "テスト", "common": true}],
      "sense": []
    }]}`
	words, err := LoadJMdict(writeTemp(t, "jmdict.json", jm))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteIndex(&buf, words); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if got := strings.Count(buf.String(), "\x1e"); got != 1 {
		t.Fatalf("expected 1 index entry, got %d (%q)", got, buf.String())
	}
}
