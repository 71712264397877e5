package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/urfave/cli/v2"

	"github.com/invpt/tanoko/pkg/analyze"
	"github.com/invpt/tanoko/pkg/srs"
)

// 10 MB cap on fetched HTML to bound memory on untrusted URLs.
const maxArticleSize = 10 * 1024 * 1024

func readCmd() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Extract an article from a URL and list its vocabulary",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "add", Usage: "Add every recognized word to the study log"},
			&cli.IntFlag{Name: "min-count", Value: 1, Usage: "Only list words appearing at least this many times"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: tanoko read [--add] <url>", 2)
			}
			articleURL := c.Args().First()

			body, err := fetchArticle(c, articleURL)
			if err != nil {
				return err
			}
			body = analyze.SanitizeRuby(body)

			parsed, err := url.Parse(articleURL)
			if err != nil {
				return fmt.Errorf("invalid URL %q: %w", articleURL, err)
			}
			article, err := readability.FromReader(bytes.NewReader(body), parsed)
			if err != nil {
				return fmt.Errorf("extracting article: %w", err)
			}
			fmt.Printf("Title: %s\n\n", article.Title)

			analyzer, err := analyze.NewAnalyzer()
			if err != nil {
				return err
			}
			sentences := analyzer.AnalyzeDocument(c.Context, article.TextContent)
			words := analyze.ContentWords(sentences)

			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := openDict(c, store)
			if err != nil {
				return err
			}
			var study *srs.Srs
			if c.Bool("add") {
				if study, err = srs.Open(store); err != nil {
					return err
				}
			}

			added := 0
			for _, w := range words {
				if w.Count < c.Int("min-count") {
					continue
				}
				results, err := d.Search(c.Context, w.Lemma)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Printf("%s (%s) x%d\t[not in dictionary]\n", w.Lemma, w.Reading, w.Count)
					continue
				}
				fmt.Printf("%s (%s) x%d\t%s\n", w.Lemma, w.Reading, w.Count, summarizeWord(results[0].Payload))
				if study != nil {
					if err := study.Add(srs.TypeVocab, results[0].ID); err != nil {
						return err
					}
					added++
				}
			}
			if study != nil {
				fmt.Printf("\nadded %d words to the study log\n", added)
			}
			return nil
		},
	}
}

// fetchArticle fetches a page with browser-like headers. Many article
// hosts block requests with a default Go User-Agent.
func fetchArticle(c *cli.Context, articleURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(c.Context, http.MethodGet, articleURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", articleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", articleURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", articleURL, err)
	}
	if len(body) >= maxArticleSize {
		return nil, fmt.Errorf("%s: body exceeds %d byte limit", articleURL, maxArticleSize)
	}
	return body, nil
}
