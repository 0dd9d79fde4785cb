package binance

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func klineRow(openMs int64, o, h, l, c, v float64) []any {
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
	return []any{openMs, f(o), f(h), f(l), f(c), f(v), openMs + 59_999}
}

func TestKlinesSinglePage(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))

		rows := []any{
			klineRow(start.UnixMilli(), 100, 101, 99, 100.5, 10),
			klineRow(start.Add(time.Minute).UnixMilli(), 100.5, 102, 100, 101, 5),
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	s, err := c.Klines(context.Background(), KlinesOptions{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		From:     start,
		To:       start.Add(10 * time.Minute),
	})
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, start, s.Candles[0].OpenTime)
	assert.Equal(t, 100.5, s.Candles[0].Close)
	assert.Equal(t, 5.0, s.Candles[1].Volume)
}

func TestKlinesPaginates(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var starts []int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		since, err := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		require.NoError(t, err)
		starts = append(starts, since)

		// First request returns a full page, the second a short one.
		n := pageLimit
		if len(starts) > 1 {
			n = 3
		}
		rows := make([]any, 0, n)
		for i := 0; i < n; i++ {
			ms := since + int64(i)*time.Minute.Milliseconds()
			rows = append(rows, klineRow(ms, 100, 101, 99, 100, 1))
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}

	var progress int
	s, err := c.Klines(context.Background(), KlinesOptions{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		From:     start,
		To:       start.Add(time.Duration(pageLimit+3) * time.Minute),
		Progress: func(total int, _ time.Time) { progress = total },
	})
	require.NoError(t, err)

	require.Len(t, starts, 2)
	// Cursor advances one millisecond past the last open time served.
	wantSecond := start.Add(time.Duration(pageLimit-1)*time.Minute).UnixMilli() + 1
	assert.Equal(t, wantSecond, starts[1])

	assert.Equal(t, pageLimit+3, s.Len())
	assert.Equal(t, pageLimit+3, progress)
}

func TestKlinesDropsCandlesPastEnd(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows := []any{
			klineRow(start.UnixMilli(), 100, 101, 99, 100, 1),
			klineRow(start.Add(time.Minute).UnixMilli(), 100, 101, 99, 100, 1),
			klineRow(start.Add(2*time.Minute).UnixMilli(), 100, 101, 99, 100, 1),
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	s, err := c.Klines(context.Background(), KlinesOptions{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		From:     start,
		To:       start.Add(2 * time.Minute), // exclusive
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestKlinesHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Klines(context.Background(), KlinesOptions{
		Symbol:   "NOPE",
		Interval: "1m",
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 400")
}

func TestKlinesValidatesOptions(t *testing.T) {
	t.Parallel()

	c := NewClient()
	_, err := c.Klines(context.Background(), KlinesOptions{Interval: "1m"})
	assert.Error(t, err)

	_, err = c.Klines(context.Background(), KlinesOptions{Symbol: "BTCUSDT"})
	assert.Error(t, err)

	_, err = c.Klines(context.Background(), KlinesOptions{Symbol: "BTCUSDT", Interval: "7m"})
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"1m": time.Minute,
		"5m": 5 * time.Minute,
		"1h": time.Hour,
		"1d": 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseInterval("42x")
	assert.Error(t, err)

	_, err = ParseInterval("")
	assert.Error(t, err)
}

func TestArchiveDownload(t *testing.T) {
	t.Parallel()

	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		// February has no archive.
		if r.URL.Path == "/BTCUSDT/5m/BTCUSDT-5m-2024-02.zip" {
			http.NotFound(w, r)
			return
		}
		name := filepath.Base(r.URL.Path)
		writeZip(t, w, strings.TrimSuffix(name, ".zip")+".csv", "1709251200000,100,101,99,100,5\n")
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := &ArchiveDownloader{BaseURL: srv.URL, DataDir: dir, HTTP: srv.Client()}

	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	paths, err := d.Download(context.Background(), "BTCUSDT", "5m", from, to)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "BTCUSDT-5m-2024-01.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "BTCUSDT-5m-2024-03.csv"), paths[1])
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	assert.Len(t, requested, 3)

	// A second run finds the CSVs on disk and skips the network entirely,
	// except for the month that 404ed.
	requested = nil
	paths2, err := d.Download(context.Background(), "BTCUSDT", "5m", from, to)
	require.NoError(t, err)
	assert.Equal(t, paths, paths2)
	assert.Equal(t, []string{"/BTCUSDT/5m/BTCUSDT-5m-2024-02.zip"}, requested)
}

func TestArchiveDownloadValidates(t *testing.T) {
	t.Parallel()

	d := NewArchiveDownloader(t.TempDir())
	now := time.Now()

	_, err := d.Download(context.Background(), "", "5m", now, now)
	assert.Error(t, err)

	_, err = d.Download(context.Background(), "BTCUSDT", "7m", now, now)
	assert.Error(t, err)
}

// writeZip streams a single-file zip archive to w.
func writeZip(t *testing.T, w io.Writer, name, content string) {
	t.Helper()
	zw := zip.NewWriter(w)
	f, err := zw.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}
