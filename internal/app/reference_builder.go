package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ai-teacher/internal/pkg/pdfextract"
	"ai-teacher/internal/rag"
	"ai-teacher/internal/vectorstore"
)

// ReferenceBuilder turns a folder of PDFs into a reference vector store.
type ReferenceBuilder struct {
	stores       *vectorstore.Manager
	chunkSize    int
	chunkOverlap int
	extract      func(io.Reader) (string, error)
	logger       *slog.Logger
}

func NewReferenceBuilder(stores *vectorstore.Manager, chunkSize, chunkOverlap int, logger *slog.Logger) *ReferenceBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceBuilder{
		stores:       stores,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		extract:      pdfextract.ExtractNormalized,
		logger:       logger.With("component", "reference_builder"),
	}
}

// WithExtractor replaces the PDF text extractor.
func (b *ReferenceBuilder) WithExtractor(extract func(io.Reader) (string, error)) *ReferenceBuilder {
	b.extract = extract
	return b
}

type BuildReport struct {
	Files  int
	Chunks int
}

// BuildFromFolder indexes every .pdf in folder, in name order, into a new
// store at out. Unreadable PDFs are skipped and logged.
func (b *ReferenceBuilder) BuildFromFolder(ctx context.Context, folder, out string) (BuildReport, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return BuildReport{}, fmt.Errorf("read reference folder failed: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var report BuildReport
	var chunks []string
	for _, name := range names {
		f, err := os.Open(filepath.Join(folder, name))
		if err != nil {
			return BuildReport{}, fmt.Errorf("open reference %s failed: %w", name, err)
		}
		text, err := b.extract(f)
		f.Close()
		if err != nil {
			b.logger.Warn("skip unreadable reference", "file", name, "error", err)
			continue
		}
		parts, err := rag.Split(text, b.chunkSize, b.chunkOverlap)
		if err != nil {
			return BuildReport{}, fmt.Errorf("chunk reference %s failed: %w", name, err)
		}
		if len(parts) == 0 {
			b.logger.Warn("reference has no text", "file", name)
			continue
		}
		report.Files++
		chunks = append(chunks, parts...)
	}
	if len(chunks) == 0 {
		return BuildReport{}, validationf("no text found in reference PDFs under %s", folder)
	}

	if _, err := b.stores.Create(ctx, out, chunks); err != nil {
		return BuildReport{}, upstream("build reference store", err)
	}
	report.Chunks = len(chunks)
	b.logger.Info("reference store built", "out", out, "files", report.Files, "chunks", report.Chunks)
	return report, nil
}
