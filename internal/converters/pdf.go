package converters

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// PopplerConverter uses Poppler's pdftoppm to render the first page of a PDF
type PopplerConverter struct {
	binary string
}

// NewPopplerConverter creates a new Poppler-based PDF rasterizer
func NewPopplerConverter() *PopplerConverter {
	return &PopplerConverter{binary: "pdftoppm"}
}

// Name returns the converter name
func (p *PopplerConverter) Name() string {
	return "poppler"
}

// RasterizeFirstPage renders only the first page, at scale × 72 DPI, to a
// temporary PNG and decodes it.
func (p *PopplerConverter) RasterizeFirstPage(ctx context.Context, data []byte, scale float64) (image.Image, error) {
	if _, err := exec.LookPath(p.binary); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w (install with: brew install poppler)", p.binary, err)
	}

	if err := requirePages(data); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "pdftoppm-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "source.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}

	// pdftoppm appends the extension itself
	outputBase := filepath.Join(workDir, "page")

	// -singlefile: Don't add page numbers to the output name
	// -f 1 -l 1: First page only
	// -r: Resolution in DPI
	args := []string{
		"-png",
		"-singlefile",
		"-f", "1",
		"-l", "1",
		"-r", strconv.FormatFloat(dpiForScale(scale), 'f', 0, 64),
		input,
		outputBase,
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	outputBytes, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w\nOutput: %s", err, string(outputBytes))
	}

	page, err := imaging.Open(outputBase + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return page, nil
}
