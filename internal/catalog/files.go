package catalog

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const metadataFilename = ".metadata.json"

// sanitizeFilename keeps only characters safe on every filesystem and strips
// leading/trailing dots and underscores.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '.' || ch == '_' || ch == '-':
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}
	sanitized := strings.Trim(b.String(), "._")
	if sanitized == "" {
		sanitized = "document.pdf"
	}
	return sanitized
}

// filenameForURL derives a local filename from the URL path, falling back to
// a numbered name when the path has no basename.
func filenameForURL(rawURL string, index int) string {
	basename := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		p := parsed.EscapedPath()
		basename = p[strings.LastIndexByte(p, '/')+1:]
		if unescaped, uErr := url.PathUnescape(basename); uErr == nil {
			basename = unescaped
		}
	}
	if basename == "" {
		basename = fmt.Sprintf("document_%d.pdf", index)
	}
	if !strings.HasSuffix(strings.ToLower(basename), ".pdf") {
		basename += ".pdf"
	}
	return sanitizeFilename(basename)
}

// filenameMapForURLs assigns each URL a unique local filename. Collisions get
// a short URL-hash suffix so two distinct URLs never overwrite one another.
func filenameMapForURLs(urls []string) map[string]string {
	mapping := make(map[string]string, len(urls))
	usedNames := make(map[string]string, len(urls))
	for idx, u := range urls {
		candidate := filenameForURL(u, idx+1)
		assigned := candidate
		if owner, taken := usedNames[assigned]; taken && owner != u {
			sum := sha1.Sum([]byte(u))
			suffix := fmt.Sprintf("%x", sum)[:10]
			ext := path.Ext(candidate)
			assigned = strings.TrimSuffix(candidate, ext) + "_" + suffix + ext
		}
		usedNames[assigned] = u
		mapping[u] = assigned
	}
	return mapping
}

// loadMetadata reads the sidecar, tolerating a missing or corrupt file: the
// worst case is re-downloading everything.
func loadMetadata(path string) map[string]MetadataRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]MetadataRecord{}
	}
	var records map[string]MetadataRecord
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return map[string]MetadataRecord{}
	}
	return records
}

// saveMetadata atomically writes the sidecar: tmp file → fsync → rename.
func saveMetadata(path string, records map[string]MetadataRecord) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal metadata: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".metadata.*.json.tmp")
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

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("catalog: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("catalog: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("catalog: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("catalog: rename: %w", err)
	}
	success = true
	return nil
}
