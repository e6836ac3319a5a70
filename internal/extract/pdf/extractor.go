// Package pdf extracts text from PDF bytes by shelling out to pdftotext
// from poppler-utils. The subprocess is behind a small runner interface so
// tests never need the binary installed.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"docqa/internal/domain"
)

var _ domain.TextExtractor = (*Extractor)(nil)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor converts PDF bytes to plain text.
type Extractor struct {
	runner CommandRunner
}

// New creates an Extractor that invokes the real pdftotext binary.
func New() *Extractor { return &Extractor{runner: execRunner{}} }

// NewWithRunner creates an Extractor with a custom runner, for tests.
func NewWithRunner(r CommandRunner) *Extractor { return &Extractor{runner: r} }

// Extract writes the bytes to a temporary file, runs pdftotext on it and
// derives the page count from the form feeds separating pages in the
// output.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("%w: empty document", domain.ErrUnreadableDocument)
	}

	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp file: %v", domain.ErrUnreadableDocument, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", 0, fmt.Errorf("%w: write temp file: %v", domain.ErrUnreadableDocument, err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("%w: close temp file: %v", domain.ErrUnreadableDocument, err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", 0, fmt.Errorf("%w: pdftotext: %v", domain.ErrUnreadableDocument, err)
	}

	// pdftotext terminates every page with a form feed.
	pages := strings.Count(string(out), "\f")
	if pages == 0 {
		pages = 1
	}
	text := strings.TrimRight(string(out), "\f\n ")
	return text, pages, nil
}

// InstallInstructions tells the user how to get pdftotext.
func InstallInstructions() string {
	return "pdftotext is required for PDF documents. Install poppler:\n" +
		"  macOS:  brew install poppler\n" +
		"  Debian: apt install poppler-utils"
}
