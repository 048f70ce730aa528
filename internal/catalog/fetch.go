package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultCatalogURL is the publications index mirrored by default.
	DefaultCatalogURL = "https://ccsds.org/publications/ccsdsallpubs/"

	// DefaultDownloadDelay spaces successive downloads from the same host.
	DefaultDownloadDelay = 2 * time.Second

	requestTimeout = 30 * time.Second
	userAgent      = "quire-fetcher/0.1 (+respectful-rate-limit)"
)

// remoteMeta holds the validator headers of a remote file.
type remoteMeta struct {
	etag          string
	lastModified  string
	contentLength int64
}

// Fetcher mirrors catalog PDFs into a destination directory.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	base    *url.URL
	destDir string
	log     *slog.Logger
}

// NewFetcher creates a fetcher for catalogURL writing into destDir. delay <= 0
// falls back to the default politeness delay.
func NewFetcher(catalogURL, destDir string, delay time.Duration, logger *slog.Logger) (*Fetcher, error) {
	base, err := url.Parse(catalogURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse catalog url: %w", err)
	}
	if base.Hostname() == "" {
		return nil, fmt.Errorf("catalog: catalog url has no host: %s", catalogURL)
	}
	if delay <= 0 {
		delay = DefaultDownloadDelay
	}
	return &Fetcher{
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		base:    base,
		destDir: destDir,
		log:     logger,
	}, nil
}

// MetadataPath returns the location of the sidecar recording validators and
// publication metadata for every mirrored file.
func (f *Fetcher) MetadataPath() string {
	return filepath.Join(f.destDir, metadataFilename)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return f.client.Do(req)
}

// FetchPublications loads the catalog page and extracts every publication.
// The embedded DataTables rows are preferred; when absent, plain links in the
// page are used instead.
func (f *Fetcher) FetchPublications(ctx context.Context) (map[string]Publication, error) {
	resp, err := f.get(ctx, f.base.String())
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch catalog page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: fetch catalog page: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read catalog page: %w", err)
	}
	page := string(body)

	if pubs := publicationsFromRows(extractEmbeddedRows(page), f.base); len(pubs) > 0 {
		return pubs, nil
	}
	return publicationsFromLinks(page, f.base), nil
}

// headMetadata asks the remote for its validators. A failed or non-2xx HEAD
// returns nil, which downstream treats as "cannot prove unchanged".
func (f *Fetcher) headMetadata(ctx context.Context, rawURL string) *remoteMeta {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	meta := &remoteMeta{
		etag:          resp.Header.Get("ETag"),
		lastModified:  resp.Header.Get("Last-Modified"),
		contentLength: -1,
	}
	if resp.ContentLength >= 0 {
		meta.contentLength = resp.ContentLength
	}
	return meta
}

// shouldSkip reports whether the local copy can be proven current: the file
// exists under the expected name and every validator the remote advertises
// matches what the last run recorded.
func shouldSkip(dest string, saved *MetadataRecord, remote *remoteMeta, expectedFilename string) bool {
	if saved == nil || remote == nil {
		return false
	}
	if _, err := os.Stat(dest); err != nil {
		return false
	}
	if saved.Filename != expectedFilename {
		return false
	}
	if remote.etag == "" || remote.lastModified == "" {
		return false
	}
	if saved.ETag != remote.etag || saved.LastModified != remote.lastModified {
		return false
	}
	if remote.contentLength >= 0 && saved.ContentLength != remote.contentLength {
		return false
	}
	return true
}

func buildRecord(filename string, remote *remoteMeta, pub Publication) MetadataRecord {
	rec := MetadataRecord{
		Filename:      filename,
		ContentLength: -1,
		Publication:   pub,
	}
	if remote != nil {
		rec.ETag = remote.etag
		rec.LastModified = remote.lastModified
		rec.ContentLength = remote.contentLength
	}
	return rec
}

// downloadFile streams the remote file to a .part temp file in the destination
// directory and renames it into place, so a crash never leaves a truncated PDF
// under the final name.
func (f *Fetcher) downloadFile(ctx context.Context, rawURL, dest string) error {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("catalog: download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("catalog: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return fmt.Errorf("catalog: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("catalog: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("catalog: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("catalog: rename: %w", err)
	}
	success = true
	return nil
}

// Run mirrors the catalog into the destination directory. limit > 0 caps how
// many publications are processed after discovery. Per-file failures are
// counted and the run continues.
func (f *Fetcher) Run(ctx context.Context, limit int) (FetchStats, error) {
	var stats FetchStats

	if err := os.MkdirAll(f.destDir, 0o755); err != nil {
		return stats, fmt.Errorf("catalog: create destination dir: %w", err)
	}

	pubs, err := f.FetchPublications(ctx)
	if err != nil {
		return stats, err
	}

	urls := make([]string, 0, len(pubs))
	for u := range pubs {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	stats.Discovered = len(urls)

	names := filenameMapForURLs(urls)
	metadata := loadMetadata(f.MetadataPath())

	for _, u := range urls {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		filename := names[u]
		dest := filepath.Join(f.destDir, filename)

		var saved *MetadataRecord
		if rec, ok := metadata[u]; ok {
			saved = &rec
		}
		remote := f.headMetadata(ctx, u)

		if shouldSkip(dest, saved, remote, filename) {
			metadata[u] = buildRecord(filename, remote, pubs[u])
			if err := saveMetadata(f.MetadataPath(), metadata); err != nil {
				f.log.Warn("catalog: metadata save failed", slog.String("error", err.Error()))
			}
			stats.Skipped++
			f.log.Debug("catalog: unchanged", slog.String("file", filename))
			continue
		}

		_, statErr := os.Stat(dest)
		existedBefore := statErr == nil

		if err := f.limiter.Wait(ctx); err != nil {
			return stats, err
		}
		if err := f.downloadFile(ctx, u, dest); err != nil {
			stats.Failed++
			f.log.Warn("catalog: download failed", slog.String("url", u), slog.String("error", err.Error()))
			continue
		}

		refreshed := remote
		if refreshed == nil {
			refreshed = f.headMetadata(ctx, u)
		}
		metadata[u] = buildRecord(filename, refreshed, pubs[u])
		if err := saveMetadata(f.MetadataPath(), metadata); err != nil {
			f.log.Warn("catalog: metadata save failed", slog.String("error", err.Error()))
		}

		if existedBefore {
			stats.Updated++
			f.log.Info("catalog: updated file", slog.String("file", filename))
		} else {
			stats.Downloaded++
			f.log.Info("catalog: new file", slog.String("file", filename))
		}
	}

	if err := saveMetadata(f.MetadataPath(), metadata); err != nil {
		f.log.Warn("catalog: metadata save failed", slog.String("error", err.Error()))
	}

	f.log.Info("catalog: run complete",
		slog.Int("discovered", stats.Discovered),
		slog.Int("downloaded", stats.Downloaded),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))
	return stats, nil
}
