package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Rasterizer renders the first page of a PDF document as PNG bytes.
type Rasterizer interface {
	FirstPage(ctx context.Context, pdf []byte) ([]byte, error)
}

// PdftoppmRasterizer shells out to poppler's pdftoppm.
type PdftoppmRasterizer struct {
	path    string
	dpi     int
	timeout time.Duration
	logger  *zap.Logger
}

// NewPdftoppmRasterizer creates a rasterizer. An empty path means "pdftoppm"
// looked up on PATH.
func NewPdftoppmRasterizer(path string, dpi int, timeout time.Duration, logger *zap.Logger) *PdftoppmRasterizer {
	if path == "" {
		path = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PdftoppmRasterizer{
		path:    path,
		dpi:     dpi,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "rasterizer")),
	}
}

// FirstPage writes pdf to a temporary directory and renders page 1.
func (r *PdftoppmRasterizer) FirstPage(ctx context.Context, pdf []byte) ([]byte, error) {
	if !IsPDF(pdf) {
		return nil, errors.New("not a pdf document")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "lokingai-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	outBase := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, r.path,
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", "1", "-l", "1",
		"-singlefile",
		input, outBase,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		r.logger.Warn("pdftoppm failed",
			zap.Error(err),
			zap.String("stderr", stderr.String()),
		)
		return nil, fmt.Errorf("rasterize pdf: %w", err)
	}

	page, err := os.ReadFile(outBase + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rasterized page: %w", err)
	}
	r.logger.Debug("pdf rasterized",
		zap.Int("bytes", len(page)),
		zap.Duration("duration", time.Since(start)),
	)
	return page, nil
}
