package converters

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/disintegration/imaging"
)

// letter size in points; the viewport is sized to one page at the render scale
const (
	pageWidthPt  = 612
	pageHeightPt = 792
)

// ChromeConverter screenshots the first page as rendered by headless Chrome's
// PDF viewer. It is the fallback when no native renderer is available and
// costs a browser process per call.
type ChromeConverter struct {
	timeout time.Duration
	settle  time.Duration
}

// NewChromeConverter creates a headless-browser rasterizer
func NewChromeConverter() *ChromeConverter {
	return &ChromeConverter{
		timeout: 45 * time.Second,
		settle:  time.Second,
	}
}

// Name returns the converter name
func (c *ChromeConverter) Name() string {
	return "chrome"
}

// RasterizeFirstPage implements Rasterizer. The browser is torn down on every
// return path, including timeouts.
func (c *ChromeConverter) RasterizeFirstPage(ctx context.Context, data []byte, scale float64) (image.Image, error) {
	if err := requirePages(data); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	defer func() {
		// close the browser gracefully before the contexts are cancelled
		_ = chromedp.Cancel(browserCtx)
	}()

	if scale <= 0 {
		scale = DefaultRenderScale
	}
	width := int64(math.Round(pageWidthPt * scale))
	height := int64(math.Round(pageHeightPt * scale))

	dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data)

	var shot []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(width, height),
		chromedp.Navigate(dataURL),
		chromedp.Sleep(c.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome screenshot failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}
