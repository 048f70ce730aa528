// Package pdf turns PDF bytes into an ordered sequence of raw page strings.
package pdf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extractor yields one raw text string per page, in document order.
// Implementations fail on corrupt or unreadable input.
type Extractor interface {
	ExtractPages(data []byte) ([]string, error)
}

// CPUExtractor extracts page text with pdfcpu. The library dumps decoded
// per-page content streams to files; the text-showing operators in each
// stream are then scanned to recover the page text.
type CPUExtractor struct {
	log *slog.Logger
}

// NewExtractor returns a pdfcpu-backed extractor.
func NewExtractor(logger *slog.Logger) *CPUExtractor {
	return &CPUExtractor{log: logger}
}

var _ Extractor = (*CPUExtractor)(nil)

// ExtractPages implements Extractor.
func (e *CPUExtractor) ExtractPages(data []byte) ([]string, error) {
	workDir, err := os.MkdirTemp("", "quire-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("pdf: temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	srcFile := filepath.Join(workDir, "src.pdf")
	if err := os.WriteFile(srcFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("pdf: write temp file: %w", err)
	}

	ctx, err := api.ReadContextFile(srcFile)
	if err != nil {
		return nil, fmt.Errorf("pdf: read document: %w", err)
	}
	pageCount := ctx.PageCount
	if pageCount == 0 {
		return nil, fmt.Errorf("pdf: document has no pages")
	}

	outDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("pdf: content dir: %w", err)
	}
	if err := api.ExtractContentFile(srcFile, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("pdf: extract content: %w", err)
	}

	pageTexts := make(map[int]string, pageCount)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("pdf: read content dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("pdf: read page content %d: %w", pageNum, err)
		}
		pageTexts[pageNum] = contentText(raw)
	}

	// Pages with no extractable text stay empty rather than failing.
	pages := make([]string, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages[pageNum-1] = pageTexts[pageNum]
	}
	e.log.Debug("extracted pdf", "pages", pageCount)
	return pages, nil
}
