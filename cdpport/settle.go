package cdpport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/chromedp/chromedp"
	"github.com/orisano/pixelmatch"

	"github.com/pagewait/pagewait"
)

// CaptureFunc captures the current viewport.
type CaptureFunc func(ctx context.Context) (image.Image, error)

// settler holds the state of a Settle condition.
type settler struct {
	capture   CaptureFunc
	threshold float64
	tolerance int
	antiAlias bool
	prev      image.Image
}

// SettleOption is a Settle option.
type SettleOption = func(*settler)

// SettleThreshold sets the per pixel color distance, between 0 and 1, below
// which two pixels are considered equal. Defaults to 0.1.
func SettleThreshold(t float64) SettleOption {
	return func(s *settler) { s.threshold = t }
}

// SettleTolerance sets the number of differing pixels still considered
// settled, for blinking carets and the like. Defaults to 0.
func SettleTolerance(pixels int) SettleOption {
	return func(s *settler) { s.tolerance = pixels }
}

// SettleCountAntiAlias counts pixels that look anti-aliased as changes.
// By default they are ignored, which hides font smoothing noise.
func SettleCountAntiAlias() SettleOption {
	return func(s *settler) { s.antiAlias = true }
}

// WithCapture replaces the chromedp screenshot used by Settle.
func WithCapture(f CaptureFunc) SettleOption {
	return func(s *settler) { s.capture = f }
}

// Settle returns a pagewait.Condition holding while the rendered page is
// still changing. Each evaluation captures the viewport and compares it
// with the previous capture, so the condition holds on its first
// evaluation and clears once two consecutive captures match. Use it with
// Waiter.WaitWhile as a visual busy indicator for animations and lazy
// rendering that leave no trace in the DOM.
//
// The returned condition is stateful and must not be shared between waits.
func Settle(opts ...SettleOption) pagewait.Condition {
	s := &settler{
		capture:   captureViewport,
		threshold: 0.1,
	}
	for _, o := range opts {
		o(s)
	}
	return s.changing
}

func (s *settler) changing(ctx context.Context) (bool, error) {
	cur, err := s.capture(ctx)
	if err != nil {
		return false, err
	}
	prev := s.prev
	s.prev = cur
	if prev == nil {
		return true, nil
	}
	opts := []pixelmatch.MatchOption{pixelmatch.Threshold(s.threshold)}
	if s.antiAlias {
		opts = append(opts, pixelmatch.IncludeAntiAlias)
	}
	return changed(prev, cur, s.tolerance, opts...)
}

// changed reports whether a and b differ in more than tolerance pixels.
// Images of different sizes always differ.
func changed(a, b image.Image, tolerance int, opts ...pixelmatch.MatchOption) (bool, error) {
	if !a.Bounds().Eq(b.Bounds()) {
		return true, nil
	}
	if samePixels(a, b) {
		return false, nil
	}
	// pixelmatch's own identity shortcut only compares the first quarter of
	// each row of *image.RGBA and friends, so hide the concrete types.
	n, err := pixelmatch.MatchPixel(opaque{a}, opaque{b}, opts...)
	switch {
	case errors.Is(err, pixelmatch.ErrImageSizesNotMatch):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("cdpport: compare screenshots: %w", err)
	}
	return n > tolerance, nil
}

// opaque hides the concrete type of an image.
type opaque struct {
	image.Image
}

// samePixels reports whether a and b, of equal bounds, are byte for byte
// identical. It only knows the formats png.Decode returns for screenshots
// and reports false for anything else.
func samePixels(a, b image.Image) bool {
	switch x := a.(type) {
	case *image.RGBA:
		y, ok := b.(*image.RGBA)
		return ok && sameRows(x.Pix, y.Pix, x.Stride, y.Stride, x.Rect.Dx()*4, x.Rect.Dy())
	case *image.NRGBA:
		y, ok := b.(*image.NRGBA)
		return ok && sameRows(x.Pix, y.Pix, x.Stride, y.Stride, x.Rect.Dx()*4, x.Rect.Dy())
	}
	return false
}

func sameRows(a, b []uint8, strideA, strideB, width, height int) bool {
	for y := 0; y < height; y++ {
		if !bytes.Equal(a[y*strideA:y*strideA+width], b[y*strideB:y*strideB+width]) {
			return false
		}
	}
	return true
}

// captureViewport takes a PNG screenshot of the viewport.
func captureViewport(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, wrap("screenshot", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("cdpport: decode screenshot: %w", err)
	}
	return img, nil
}
