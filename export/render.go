package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/icza/mjpeg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/z3r0c0d3r/predprey/mesh"
)

// Renderer rasterizes a nodal field over the mesh into an RGBA image by
// barycentric interpolation, using the mesh locator to find the element
// under each pixel.  Pixels outside the mesh stay black.
type Renderer struct {
	W, H int
	// Lo, Hi fix the color scale.  When Lo == Hi the scale is computed
	// per frame from the field extrema.
	Lo, Hi float64

	m   *mesh.Mesh
	loc *mesh.Locator
	x0  float64
	y0  float64
	dx  float64
	dy  float64
}

// NewRenderer prepares a w-by-h renderer for the mesh.
func NewRenderer(m *mesh.Mesh, w, h int) *Renderer {
	low, up := m.Bounds()
	return &Renderer{
		W:   w,
		H:   h,
		m:   m,
		loc: mesh.NewLocator(m, 16, 16),
		x0:  low.X,
		y0:  low.Y,
		dx:  (up.X - low.X) / float64(w),
		dy:  (up.Y - low.Y) / float64(h),
	}
}

// Frame renders the field, annotated with label in the top-left corner.
func (r *Renderer) Frame(field []float64, label string) *image.RGBA {
	lo, hi := r.Lo, r.Hi
	if lo == hi {
		lo, hi = field[0], field[0]
		for _, v := range field[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	for py := 0; py < r.H; py++ {
		// flip so y grows upward in the image
		y := r.y0 + (float64(r.H-1-py)+0.5)*r.dy
		for px := 0; px < r.W; px++ {
			x := r.x0 + (float64(px)+0.5)*r.dx
			v, ok := r.loc.Interpolate(field, x, y)
			if !ok {
				img.Set(px, py, color.Black)
				continue
			}
			img.Set(px, py, heat((v-lo)/(hi-lo)))
		}
	}

	if label != "" {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.White),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(4, 14),
		}
		d.DrawString(label)
	}
	return img
}

// heat maps a normalized value in [0, 1] to a blue-to-red color ramp.
func heat(t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(64 * (1 - 2*abs(t-0.5))),
		B: uint8(255 * (1 - t)),
		A: 255,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// WritePNG renders a single frame to a PNG file.
func (r *Renderer) WritePNG(path string, field []float64, label string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, r.Frame(field, label)); err != nil {
		return fmt.Errorf("export: encode png: %w", err)
	}
	return nil
}

// Video writes rendered frames into an MJPEG AVI file.
type Video struct {
	aw mjpeg.AviWriter
	r  *Renderer
}

// NewVideo opens an AVI file matched to the renderer's frame size.
func NewVideo(path string, r *Renderer, fps int32) (*Video, error) {
	aw, err := mjpeg.New(path, int32(r.W), int32(r.H), fps)
	if err != nil {
		return nil, fmt.Errorf("export: open video: %w", err)
	}
	return &Video{aw: aw, r: r}, nil
}

// AddFrame renders the field and appends it to the video.
func (v *Video) AddFrame(field []float64, label string) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, v.r.Frame(field, label), nil); err != nil {
		return fmt.Errorf("export: encode frame: %w", err)
	}
	if err := v.aw.AddFrame(buf.Bytes()); err != nil {
		return fmt.Errorf("export: add frame: %w", err)
	}
	return nil
}

// Close finalizes the AVI index.
func (v *Video) Close() error { return v.aw.Close() }
