package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/xyproto/unzip"
)

// ArchiveBaseURL serves Binance's bulk monthly kline dumps.
const ArchiveBaseURL = "https://data.binance.vision/data/futures/um/monthly/klines"

// ArchiveDownloader pulls monthly kline zip archives and extracts the CSV
// inside each one. Files already on disk are not re-downloaded.
type ArchiveDownloader struct {
	BaseURL string
	DataDir string
	HTTP    *http.Client
}

func NewArchiveDownloader(dataDir string) *ArchiveDownloader {
	return &ArchiveDownloader{
		BaseURL: ArchiveBaseURL,
		DataDir: dataDir,
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// Download fetches every monthly archive from the month of `from` through the
// month of `to` inclusive, extracting each into DataDir. It returns the paths
// of the extracted CSV files in chronological order. Months the venue has no
// archive for (404) are skipped.
func (d *ArchiveDownloader) Download(ctx context.Context, symbol, interval string, from, to time.Time) ([]string, error) {
	if symbol == "" {
		return nil, fmt.Errorf("binance: missing symbol")
	}
	if _, err := ParseInterval(interval); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.DataDir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !month.After(last) {
		name := fmt.Sprintf("%s-%s-%04d-%02d", symbol, interval, month.Year(), int(month.Month()))
		zipPath := filepath.Join(d.DataDir, name+".zip")
		csvPath := filepath.Join(d.DataDir, name+".csv")

		if _, err := os.Stat(csvPath); err == nil {
			paths = append(paths, csvPath)
			month = month.AddDate(0, 1, 0)
			continue
		}

		url := fmt.Sprintf("%s/%s/%s/%s.zip", d.BaseURL, symbol, interval, name)
		ok, err := d.fetchArchive(ctx, url, zipPath)
		if err != nil {
			return paths, err
		}
		if ok {
			if err := unzip.Extract(zipPath, d.DataDir); err != nil {
				return paths, fmt.Errorf("binance: extract %s: %w", zipPath, err)
			}
			paths = append(paths, csvPath)
		}
		month = month.AddDate(0, 1, 0)
	}
	return paths, nil
}

// fetchArchive downloads url to dst unless dst already exists. A 404 is not
// an error; it reports ok=false so callers can skip missing months.
func (d *ArchiveDownloader) fetchArchive(ctx context.Context, url, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	httpClient := d.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("binance archive http %d: %s", resp.StatusCode, url)
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return false, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, os.Rename(tmp, dst)
}
