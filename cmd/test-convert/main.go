// cmd/test-convert runs the preview pipeline on a local file without any
// backend, queue or HTTP server.
//
// Usage:
//
//	./test-convert -input plan.pdf -output plan_thumb.jpg
//	./test-convert -input scan.png -width 200 -quality 70
//	./test-convert -input plan.pdf -probe  # page count only
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tendant/drawing-thumbnailer/internal/converters"
	"github.com/tendant/drawing-thumbnailer/internal/img"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

func main() {
	input := flag.String("input", "", "Input file path (required)")
	output := flag.String("output", "", "Output thumbnail path (default: input_thumb.jpg)")
	kind := flag.String("kind", "", "Declared file type, e.g. pdf or image/png (default: input extension)")
	rasterizer := flag.String("rasterizer", "fitz", "Page rasterizer: "+strings.Join(converters.Names(), ", "))
	width := flag.Int("width", img.DefaultMaxWidth, "Maximum preview width in pixels")
	quality := flag.Int("quality", img.DefaultQuality, "JPEG quality (1-100)")
	scale := flag.Float64("scale", converters.DefaultRenderScale, "Page render scale")
	probe := flag.Bool("probe", false, "Show document metadata only (don't convert)")
	timeout := flag.Duration("timeout", 30*time.Second, "Conversion timeout")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	if *input == "" {
		fmt.Println("Error: -input flag is required")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("❌ Read input: %v", err)
	}

	declared := *kind
	if declared == "" {
		declared = schema.Extension(*input)
	}
	sniffed := mimetype.Detect(data)

	if *verbose {
		fmt.Printf("📄 Input: %s (%s)\n", *input, formatBytes(int64(len(data))))
		fmt.Printf("🔍 Declared: %s, detected: %s\n", declared, sniffed.String())
	}

	if *probe {
		fmt.Println("\n📊 File Metadata:")
		fmt.Println(strings.Repeat("-", 40))
		printFileInfo(data, sniffed)
		return
	}

	r, err := converters.New(*rasterizer)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	pipeline := img.NewPipeline(img.Options{
		MaxWidth:    *width,
		Quality:     *quality,
		RenderScale: *scale,
		Rasterizer:  r,
	})

	if *output == "" {
		ext := filepath.Ext(*input)
		*output = strings.TrimSuffix(*input, ext) + "_thumb.jpg"
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("\n🎨 Generating thumbnail...\n")
	preview, err := pipeline.Derive(ctx, data, declared)
	if err != nil {
		log.Fatalf("❌ Conversion failed: %v", err)
	}
	if err := os.WriteFile(*output, preview.Data, 0o644); err != nil {
		log.Fatalf("❌ Write output: %v", err)
	}

	fmt.Printf("\n✅ Conversion successful!\n")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("📁 Output: %s\n", *output)
	fmt.Printf("📐 Dimensions: %dx%d (source %dx%d)\n", preview.Width, preview.Height, preview.SourceWidth, preview.SourceHeight)
	fmt.Printf("📏 Size: %s\n", formatBytes(int64(preview.Size())))
	fmt.Printf("⏱️  Time: %v\n", preview.Elapsed.Round(time.Millisecond))

	if *verbose {
		fmt.Printf("\n🔧 Generator: %s, quality %d\n", preview.Generator, preview.Quality)
		fmt.Printf("📊 Compression: %.1f%%\n", float64(preview.Size())/float64(len(data))*100)
	}
	fmt.Println()
}

func printFileInfo(data []byte, sniffed *mimetype.MIME) {
	fmt.Printf("MIME Type: %s\n", sniffed.String())
	fmt.Printf("File Size: %s\n", formatBytes(int64(len(data))))

	if !sniffed.Is("application/pdf") {
		return
	}
	info, err := converters.Probe(data)
	if err != nil {
		log.Fatalf("❌ Failed to probe file: %v", err)
	}
	fmt.Printf("Pages: %d\n", info.Pages)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
