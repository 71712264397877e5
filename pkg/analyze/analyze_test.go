package analyze

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	return a
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("犬が好きです。猫も好き！そうですか？\nはい")
	want := []string{"犬が好きです。", "猫も好き！", "そうですか？", "\n", "はい"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAnalyzeProducesLemmaAndReading(t *testing.T) {
	a := newTestAnalyzer(t)

	tokens := a.Analyze("行った")
	if len(tokens) == 0 {
		t.Fatal("expected tokens")
	}
	if tokens[0].Lemma != "行く" {
		t.Fatalf("expected lemma 行く, got %q", tokens[0].Lemma)
	}
	if tokens[0].Reading == "" {
		t.Fatal("expected a reading")
	}
}

func TestAnalyzeDocumentPreservesOrder(t *testing.T) {
	a := newTestAnalyzer(t)
	a.Workers = 3

	text := "犬が好きです。猫も好きです。鳥は苦手です。"
	sentences := a.AnalyzeDocument(context.Background(), text)
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(sentences))
	}
	want := []string{"犬が好きです。", "猫も好きです。", "鳥は苦手です。"}
	for i, s := range sentences {
		if s.Text != want[i] {
			t.Fatalf("sentence %d out of order: %q", i, s.Text)
		}
		if len(s.Tokens) == 0 {
			t.Fatalf("sentence %d has no tokens", i)
		}
	}
}

func TestContentWordsFiltersAndCounts(t *testing.T) {
	sentences := []Sentence{
		{Tokens: []Token{
			{Surface: "犬", Lemma: "犬", Reading: "イヌ", POS: []string{"名詞", "一般"}},
			{Surface: "が", Lemma: "が", POS: []string{"助詞", "格助詞"}},
			{Surface: "好き", Lemma: "好き", Reading: "スキ", POS: []string{"名詞", "形容動詞語幹"}},
			{Surface: "です", Lemma: "です", POS: []string{"助動詞"}},
			{Surface: "。", Lemma: "。", POS: []string{"記号", "句点"}},
		}},
		{Tokens: []Token{
			{Surface: "犬", Lemma: "犬", Reading: "イヌ", POS: []string{"名詞", "一般"}},
			{Surface: "3", Lemma: "3", POS: []string{"名詞", "数"}},
			{Surface: "OK", Lemma: "OK", POS: []string{"名詞", "一般"}},
		}},
	}

	words := ContentWords(sentences)
	want := []Word{
		{Lemma: "犬", Reading: "いぬ", Count: 2},
		{Lemma: "好き", Reading: "すき", Count: 1},
	}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("got %+v, want %+v", words, want)
	}
}

func TestContentWordsBackfillsReading(t *testing.T) {
	sentences := []Sentence{
		{Tokens: []Token{
			{Surface: "犬", Lemma: "犬", POS: []string{"名詞"}},
			{Surface: "犬", Lemma: "犬", Reading: "イヌ", POS: []string{"名詞"}},
		}},
	}
	words := ContentWords(sentences)
	if len(words) != 1 || words[0].Reading != "いぬ" {
		t.Fatalf("reading not backfilled: %+v", words)
	}
}

func TestSanitizeRuby(t *testing.T) {
	in := []byte(`<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>です`)
	out := string(SanitizeRuby(in))
	if strings.Contains(out, "かんじ") {
		t.Fatalf("rt content survived: %q", out)
	}
	if !strings.Contains(out, "漢字") {
		t.Fatalf("base text lost: %q", out)
	}
}
