package assets

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// GitHubAPI is the API base used for release discovery. Overridable
// for tests.
var GitHubAPI = "https://api.github.com"

// Source names an upstream dataset release to fetch.
type Source struct {
	// Repo is the owner/name of the GitHub repository publishing the
	// dataset, e.g. "scriptin/jmdict-simplified".
	Repo string
	// AssetContains selects the release asset by substring, e.g.
	// "jmdict-eng".
	AssetContains string
}

// JMdictSource is the upstream English jmdict-simplified release.
var JMdictSource = Source{Repo: "scriptin/jmdict-simplified", AssetContains: "jmdict-eng"}

// KanjidicSource is the upstream English kanjidic2 release.
var KanjidicSource = Source{Repo: "scriptin/jmdict-simplified", AssetContains: "kanjidic2-en"}

// Ensure makes the dataset JSON available at path, downloading and
// extracting the latest release when the file is missing.
func Ensure(ctx context.Context, path string, src Source) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	url, err := latestReleaseAssetURL(ctx, src)
	if err != nil {
		return fmt.Errorf("find latest %s release: %w", src.Repo, err)
	}
	return downloadAndExtract(ctx, url, path)
}

func latestReleaseAssetURL(ctx context.Context, src Source) (string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/releases/latest", GitHubAPI, src.Repo)
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	// GitHub's API requires a User-Agent.
	req.Header.Set("User-Agent", "tanoko")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github api returned status: %s", resp.Status)
	}

	var release struct {
		Assets []struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}

	for _, asset := range release.Assets {
		if strings.Contains(asset.Name, src.AssetContains) &&
			(strings.HasSuffix(asset.Name, ".json.tgz") || strings.HasSuffix(asset.Name, ".json.gz")) {
			return asset.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("no asset matching %q in latest release", src.AssetContains)
}

func downloadAndExtract(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	// Current releases are .json.tgz: a tar stream holding one JSON
	// file.
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read release archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".json") {
			continue
		}

		out, err := os.Create(destPath)
		if err != nil {
			return fmt.Errorf("create dataset file: %w", err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("write dataset file: %w", err)
		}
		return out.Close()
	}
	return fmt.Errorf("no json file found in release archive")
}
