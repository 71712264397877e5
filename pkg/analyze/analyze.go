// Package analyze segments Japanese text into sentences and content
// words so the reading workflow can turn an article into study
// vocabulary. Tokenization uses the kagome morphological analyzer
// with the IPA dictionary.
package analyze

import (
	"context"
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token is one analyzed unit of text.
type Token struct {
	Surface string // text as written, e.g. 行っ
	Lemma   string // dictionary form, e.g. 行く
	Reading string // pronunciation in katakana, e.g. イッ
	POS     []string
}

// Sentence is a sentence with its tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer wraps the tokenizer. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
	// Workers bounds concurrent sentence tokenization in
	// AnalyzeDocument. Defaults to 4.
	Workers int
}

// NewAnalyzer loads the IPA dictionary and returns an analyzer.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze tokenizes a single run of text.
//
// IPA dictionary features per token: 0-3 part of speech, 4-5
// conjugation, 6 lemma, 7 reading.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		features := tok.Features()

		lemma := tok.Surface
		if len(features) > 6 && features[6] != "*" {
			lemma = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}

		result = append(result, Token{
			Surface: tok.Surface,
			Lemma:   lemma,
			Reading: reading,
			POS:     features,
		})
	}
	return result
}

// AnalyzeDocument splits text into sentences and tokenizes them with
// a bounded worker pool. Sentence order is preserved.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, text string) []Sentence {
	raw := SplitSentences(text)
	out := make([]Sentence, len(raw))

	pool := newPool(a.Workers)
	pool.Start(ctx)
	for i, s := range raw {
		i, s := i, s
		if !pool.Submit(ctx, func() {
			out[i] = Sentence{Text: s, Tokens: a.Analyze(s)}
		}) {
			break
		}
	}
	pool.Close()

	result := make([]Sentence, 0, len(out))
	for _, s := range out {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		result = append(result, s)
	}
	return result
}

// SplitSentences splits on Japanese sentence enders and newlines.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

var asciiOnly = regexp.MustCompile(`^[a-zA-Z0-9\s[:punct:]]+$`)

// Word is a content word aggregated across a document.
type Word struct {
	Lemma   string
	Reading string // hiragana
	Count   int
}

// ContentWords aggregates study-worthy words from analyzed sentences:
// particles, auxiliaries, symbols, numerals and pure-ASCII tokens are
// dropped, occurrences are counted per lemma, and first-appearance
// order is kept.
func ContentWords(sentences []Sentence) []Word {
	counts := map[string]int{}
	readings := map[string]string{}
	var order []string

	for _, sentence := range sentences {
		for _, t := range sentence.Tokens {
			if len(t.POS) > 0 {
				switch t.POS[0] {
				case "記号", "補助記号", "助詞", "助動詞":
					continue
				}
			}
			if len(t.POS) > 1 && t.POS[1] == "数" {
				continue
			}
			if asciiOnly.MatchString(t.Surface) {
				continue
			}

			if _, seen := counts[t.Lemma]; !seen {
				order = append(order, t.Lemma)
				readings[t.Lemma] = toHiragana(t.Reading)
			} else if readings[t.Lemma] == "" && t.Reading != "" {
				readings[t.Lemma] = toHiragana(t.Reading)
			}
			counts[t.Lemma]++
		}
	}

	words := make([]Word, 0, len(order))
	for _, lemma := range order {
		words = append(words, Word{Lemma: lemma, Reading: readings[lemma], Count: counts[lemma]})
	}
	return words
}

func toHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby strips furigana markup (<rt>, <rp>) from HTML so
// extracted text does not duplicate readings after each kanji run.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	return reRP.ReplaceAll(cleaned, []byte{})
}
