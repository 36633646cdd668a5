// Package compose turns a capture result into a single preview canvas:
// every window thumbnail is rescaled to the monitor's preview scale,
// blitted at its monitor-relative position, and paired with a clickable
// hit region for focus dispatch.
package compose

import (
	"image"

	"github.com/bryanchriswhite/hyprpeek/internal/capture"
	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
)

// Canvas is the composited preview buffer. Pixels are 32-bit BGRA, the
// byte order wl_shm delivers, fully opaque after compositing.
type Canvas struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// ClickRegion maps a canvas rectangle back to the window shown there.
type ClickRegion struct {
	X, Y, W, H float64
	Address    hypr.Address
}

// Contains reports whether the canvas point lies inside the region.
func (r ClickRegion) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// HitTest resolves a canvas point to a window address. First match wins;
// tiled source windows are not expected to overlap.
func HitTest(regions []ClickRegion, x, y float64) (hypr.Address, bool) {
	for _, r := range regions {
		if r.Contains(x, y) {
			return r.Address, true
		}
	}
	return "", false
}

// Compose renders one capture result into a canvas of the given width.
// The scale factor is targetWidth/monitorWidth, so the canvas height
// follows the monitor's aspect ratio. Returns the canvas and the freshly
// built hit-region list; the two always replace prior state together.
func Compose(result *capture.CaptureResult, targetWidth int) (*Canvas, []ClickRegion) {
	scale := float64(targetWidth) / float64(result.MonitorWidth)

	height := int(float64(result.MonitorHeight) * scale)
	if height < 1 {
		height = 1
	}

	canvas := &Canvas{
		Pix:    make([]byte, targetWidth*4*height),
		Width:  targetWidth,
		Height: height,
		Stride: targetWidth * 4,
	}

	regions := make([]ClickRegion, 0, len(result.Thumbnails))
	for i := range result.Thumbnails {
		thumb := &result.Thumbnails[i]
		region, ok := blitThumbnail(canvas, thumb, scale)
		if ok {
			regions = append(regions, region)
		}
	}

	return canvas, regions
}

// blitThumbnail downscales one thumbnail and writes it into the canvas at
// its scaled position, clipping silently at the canvas edges. Alpha is
// forced opaque: the capture is treated as an opaque snapshot.
func blitThumbnail(canvas *Canvas, thumb *capture.WindowThumbnail, scale float64) (ClickRegion, bool) {
	dstW := int(float64(thumb.WinWidth) * scale)
	if dstW < 1 {
		dstW = 1
	}
	dstH := int(float64(thumb.WinHeight) * scale)
	if dstH < 1 {
		dstH = 1
	}

	scaled, scaledStride := downscaleNearest(thumb.Data, int(thumb.Width), int(thumb.Height), int(thumb.Stride), dstW, dstH)

	ox := int(float64(thumb.X) * scale)
	oy := int(float64(thumb.Y) * scale)

	for row := 0; row < dstH; row++ {
		by := oy + row
		if by < 0 || by >= canvas.Height {
			continue
		}
		for col := 0; col < dstW; col++ {
			bx := ox + col
			if bx < 0 || bx >= canvas.Width {
				continue
			}
			srcOff := row*scaledStride + col*4
			dstOff := by*canvas.Stride + bx*4
			if srcOff+4 > len(scaled) || dstOff+4 > len(canvas.Pix) {
				continue
			}
			copy(canvas.Pix[dstOff:dstOff+3], scaled[srcOff:srcOff+3])
			canvas.Pix[dstOff+3] = 0xFF
		}
	}

	// Hit region from the clipped destination rectangle
	x0 := clampInt(ox, 0, canvas.Width)
	y0 := clampInt(oy, 0, canvas.Height)
	x1 := clampInt(ox+dstW, 0, canvas.Width)
	y1 := clampInt(oy+dstH, 0, canvas.Height)
	if x1 <= x0 || y1 <= y0 {
		return ClickRegion{}, false
	}

	return ClickRegion{
		X:       float64(x0),
		Y:       float64(y0),
		W:       float64(x1 - x0),
		H:       float64(y1 - y0),
		Address: thumb.Address,
	}, true
}

// downscaleNearest resamples BGRA pixels with integer-ratio nearest
// neighbor: destination (dx,dy) takes source (dx*srcW/dstW, dy*srcH/dstH).
func downscaleNearest(src []byte, srcW, srcH, srcStride, dstW, dstH int) ([]byte, int) {
	dstStride := dstW * 4
	dst := make([]byte, dstStride*dstH)

	for dy := 0; dy < dstH; dy++ {
		sy := dy * srcH / dstH
		for dx := 0; dx < dstW; dx++ {
			sx := dx * srcW / dstW
			srcOff := sy*srcStride + sx*4
			dstOff := dy*dstStride + dx*4
			if srcOff+4 <= len(src) {
				copy(dst[dstOff:dstOff+4], src[srcOff:srcOff+4])
			}
		}
	}

	return dst, dstStride
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RGBA converts the canvas to an image.RGBA for encoding. wl_shm pixels
// are BGRA, so the red and blue channels swap.
func (c *Canvas) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	for y := 0; y < c.Height; y++ {
		srcRow := y * c.Stride
		dstRow := y * img.Stride
		for x := 0; x < c.Width; x++ {
			s := srcRow + x*4
			d := dstRow + x*4
			img.Pix[d+0] = c.Pix[s+2]
			img.Pix[d+1] = c.Pix[s+1]
			img.Pix[d+2] = c.Pix[s+0]
			img.Pix[d+3] = c.Pix[s+3]
		}
	}
	return img
}
