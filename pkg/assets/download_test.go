package assets

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureSkipsExistingFile(t *testing.T) {
	path := writeTemp(t, "jmdict.json", "{}")

	// Pointing the API at an unreachable host proves no network
	// request is made when the file already exists.
	old := GitHubAPI
	GitHubAPI = "http://127.0.0.1:1"
	defer func() { GitHubAPI = old }()

	if err := Ensure(context.Background(), path, JMdictSource); err != nil {
		t.Fatalf("ensure with existing file: %v", err)
	}
}

func TestEnsureDownloadsAndExtracts(t *testing.T) {
	const content = `{"words": []}`

	// Release asset: a .json.tgz holding one JSON file.
	var tgz bytes.Buffer
	gz := gzip.NewWriter(&tgz)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "jmdict-eng-3.5.0.json", Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	tw.Close()
	gz.Close()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/repos/scriptin/jmdict-simplified/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		fmt.Fprintf(w, `{"assets": [
			{"name": "jmdict-all-3.5.0.json.tgz", "browser_download_url": "%s/other"},
			{"name": "jmdict-eng-3.5.0.json.tgz", "browser_download_url": "%s/asset"}
		]}`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tgz.Bytes())
	})

	old := GitHubAPI
	GitHubAPI = srv.URL
	defer func() { GitHubAPI = old }()

	path := filepath.Join(t.TempDir(), "jmdict.json")
	if err := Ensure(context.Background(), path, JMdictSource); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != content {
		t.Fatalf("extracted content mismatch: %q", got)
	}
}

func TestEnsureFailsWhenNoMatchingAsset(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/repos/scriptin/jmdict-simplified/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"assets": []}`)
	})

	old := GitHubAPI
	GitHubAPI = srv.URL
	defer func() { GitHubAPI = old }()

	path := filepath.Join(t.TempDir(), "jmdict.json")
	if err := Ensure(context.Background(), path, JMdictSource); err == nil {
		t.Fatal("expected error for empty release")
	}
}
