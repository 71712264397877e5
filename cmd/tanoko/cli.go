package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/invpt/tanoko/pkg/assets"
	"github.com/invpt/tanoko/pkg/dict"
	"github.com/invpt/tanoko/pkg/kv"
	"github.com/invpt/tanoko/pkg/srs"
	"github.com/invpt/tanoko/pkg/text"
)

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tanoko"
	}
	return filepath.Join(home, ".tanoko")
}

// newApp builds the CLI application with all commands.
func newApp() *cli.App {
	app := &cli.App{
		Name:    "tanoko",
		Usage:   "Offline Japanese dictionary and spaced-repetition study log",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Value: filepath.Join(defaultBaseDir(), "tanoko.db"),
				Usage: "Path to the local store",
			},
			&cli.StringFlag{
				Name:  "words",
				Value: filepath.Join("assets", "jmdict-words.txt"),
				Usage: "Word dataset source (URL or file)",
			},
			&cli.StringFlag{
				Name:  "kanji-src",
				Value: filepath.Join("assets", "kanjidic-kanji.txt"),
				Usage: "Character dataset source (URL or file)",
			},
			&cli.StringFlag{
				Name:  "index",
				Value: filepath.Join("assets", "jmdict-index.txt"),
				Usage: "Search index source (URL or file)",
			},
		},
		Commands: []*cli.Command{
			genCmd(),
			importCmd(),
			searchCmd(),
			wordCmd(),
			kanjiCmd(),
			addCmd(),
			reviewCmd(),
			dueCmd(),
			exportCmd(),
			readCmd(),
		},
	}
	// Errors propagate to main instead of exiting mid-run.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func openStore(c *cli.Context) (*kv.Store, error) {
	return kv.Open(c.String("db"))
}

func openDict(c *cli.Context, store *kv.Store) (*dict.Dict, error) {
	return dict.Open(c.Context, dict.Config{
		Store:    store,
		WordsSrc: c.String("words"),
		KanjiSrc: c.String("kanji-src"),
		IndexSrc: c.String("index"),
	})
}

func genCmd() *cli.Command {
	return &cli.Command{
		Name:  "gen",
		Usage: "Download upstream dictionary releases and generate the dataset and index assets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "jmdict", Value: filepath.Join("assets", "jmdict-eng.json"), Usage: "JMdict-simplified JSON path (downloaded if missing)"},
			&cli.StringFlag{Name: "kanjidic", Value: filepath.Join("assets", "kanjidic2-en.json"), Usage: "Kanjidic2 JSON path (downloaded if missing)"},
			&cli.StringFlag{Name: "out", Value: "assets", Usage: "Output directory for the generated assets"},
		},
		Action: func(c *cli.Context) error {
			outDir := c.String("out")
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			if err := assets.Ensure(c.Context, c.String("jmdict"), assets.JMdictSource); err != nil {
				return err
			}
			if err := assets.Ensure(c.Context, c.String("kanjidic"), assets.KanjidicSource); err != nil {
				return err
			}

			words, err := assets.LoadJMdict(c.String("jmdict"))
			if err != nil {
				return err
			}
			chars, err := assets.LoadKanjidic(c.String("kanjidic"))
			if err != nil {
				return err
			}

			outputs := []struct {
				name  string
				write func(*os.File) error
			}{
				{"jmdict-words.txt", func(f *os.File) error { return assets.WriteWordsDSV(f, words) }},
				{"kanjidic-kanji.txt", func(f *os.File) error { return assets.WriteKanjiDSV(f, chars) }},
				{"jmdict-index.txt", func(f *os.File) error { return assets.WriteIndex(f, words) }},
			}
			for _, out := range outputs {
				f, err := os.Create(filepath.Join(outDir, out.name))
				if err != nil {
					return err
				}
				if err := out.write(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", filepath.Join(outDir, out.name))
			}
			fmt.Printf("generated assets for %d words and %d characters\n", len(words), len(chars))
			return nil
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import the datasets into the local store (skipped when already current)",
		Action: func(c *cli.Context) error {
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := openDict(c, store)
			if err != nil {
				return err
			}
			remove := d.AddStatusListener(func(st dict.Status) {
				if st.Kind == dict.StatusLoading {
					fmt.Printf("\rimported %d records...", st.ItemsLoaded)
				}
			})
			defer remove()

			if err := d.Wait(c.Context); err != nil {
				return err
			}
			fmt.Printf("\rready: %d records\n", d.Status().ItemsLoaded)
			return nil
		},
	}
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the dictionary",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: tanoko search <query>", 2)
			}
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := openDict(c, store)
			if err != nil {
				return err
			}
			results, err := d.Search(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%s\t%s\n", r.ID, summarizeWord(r.Payload))
			}
			return nil
		},
	}
}

func wordCmd() *cli.Command {
	return &cli.Command{
		Name:      "word",
		Usage:     "Print a word record by identifier",
		ArgsUsage: "<id>",
		Action:    lookupAction("word", (*dict.Dict).LoadWord),
	}
}

func kanjiCmd() *cli.Command {
	return &cli.Command{
		Name:      "kanji",
		Usage:     "Print a character record by literal",
		ArgsUsage: "<literal>",
		Action:    lookupAction("kanji", (*dict.Dict).LoadKanji),
	}
}

func lookupAction(kind string, load func(*dict.Dict, context.Context, string) ([]byte, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit(fmt.Sprintf("usage: tanoko %s <key>", kind), 2)
		}
		store, err := openStore(c)
		if err != nil {
			return err
		}
		defer store.Close()

		d, err := openDict(c, store)
		if err != nil {
			return err
		}
		payload, err := load(d, c.Context, c.Args().First())
		if err != nil {
			return err
		}
		if payload == nil {
			return cli.Exit(fmt.Sprintf("no %s record for %q", kind, c.Args().First()), 1)
		}
		fmt.Println(string(payload))
		return nil
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Start studying a word",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: tanoko add <id>", 2)
			}
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := srs.Open(store)
			if err != nil {
				return err
			}
			return s.Add(srs.TypeVocab, c.Args().First())
		},
	}
}

func reviewCmd() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Record a review outcome",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fail", Usage: "Record a failed review instead of a success"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: tanoko review [--fail] <id>", 2)
			}
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := srs.Open(store)
			if err != nil {
				return err
			}
			if err := s.Review(srs.TypeVocab, c.Args().First(), !c.Bool("fail")); err != nil {
				return err
			}

			snap := s.Snapshot()
			if next, ok := snap.State[srs.TypeVocab][c.Args().First()]; ok && next.NextReview.After(time.Now()) {
				fmt.Printf("next review in %s\n", text.ApproximateDuration(time.Until(next.NextReview)))
			} else {
				fmt.Println("due again now")
			}
			return nil
		},
	}
}

func dueCmd() *cli.Command {
	return &cli.Command{
		Name:  "due",
		Usage: "List reviews that are due now",
		Action: func(c *cli.Context) error {
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := srs.Open(store)
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			if len(snap.Available) == 0 {
				if snap.SoonestReview != nil {
					fmt.Printf("nothing due; next review in %s\n", text.ApproximateDuration(time.Until(*snap.SoonestReview)))
				} else {
					fmt.Println("nothing to review")
				}
				return nil
			}
			for _, d := range snap.Available {
				fmt.Printf("%s\t%s\n", d.Type, d.ID)
			}
			return nil
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the full review log as a JSON document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "Output path (default: <base>/exports/srs-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := srs.Open(store)
			if err != nil {
				return err
			}

			path := c.String("out")
			if path == "" {
				path = filepath.Join(defaultBaseDir(), "exports",
					fmt.Sprintf("srs-%s.json", time.Now().Format("20060102-150405")))
			}
			if err := s.ExportFile(path); err != nil {
				return err
			}
			fmt.Printf("exported review log to %s\n", path)
			return nil
		},
	}
}

// summarizeWord pulls the first writing variant and gloss out of a
// raw word record for one-line display.
func summarizeWord(payload []byte) string {
	var w struct {
		Kanji []struct {
			Text string `json:"text"`
		} `json:"kanji"`
		Kana []struct {
			Text string `json:"text"`
		} `json:"kana"`
		Sense []struct {
			Gloss []struct {
				Text string `json:"text"`
			} `json:"gloss"`
		} `json:"sense"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return ""
	}

	written := ""
	if len(w.Kanji) > 0 {
		written = w.Kanji[0].Text
	} else if len(w.Kana) > 0 {
		written = w.Kana[0].Text
	}
	gloss := ""
	if len(w.Sense) > 0 && len(w.Sense[0].Gloss) > 0 {
		gloss = w.Sense[0].Gloss[0].Text
	}
	if gloss == "" {
		return written
	}
	return written + "\t" + gloss
}
