package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const labelFontSize = 11.0

// Painter rasterises scenes. It is safe for concurrent use; each Paint call
// gets its own font face.
type Painter struct {
	font *truetype.Font
}

// NewPainter parses the label font.
func NewPainter() (*Painter, error) {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Painter{font: f}, nil
}

// Paint draws every pass of the scene in order.
func (p *Painter) Paint(s *Scene) image.Image {
	w, h := max(s.Width, 1), max(s.Height, 1)
	dc := gg.NewContext(w, h)
	dc.SetColor(mustColor(CellColor))
	dc.Clear()

	face := truetype.NewFace(p.font, &truetype.Options{
		Size:    labelFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	dc.SetFontFace(face)

	for _, c := range s.Cells {
		paintCell(dc, c)
	}
	for _, o := range s.Objects {
		paintShape(dc, o.Rect, o.Radius, o.Style, o.Label)
	}
	for _, b := range s.Furniture {
		paintShape(dc, b.Rect, b.Radius, b.Style, b.Label)
	}
	if s.Route != nil {
		paintRoute(dc, s.Route)
	}
	if s.Preview != nil {
		paintPreview(dc, s.Preview)
	}
	return dc.Image()
}

// EncodePNG paints the scene and writes it as PNG.
func (p *Painter) EncodePNG(w io.Writer, s *Scene) error {
	return png.Encode(w, p.Paint(s))
}

func paintCell(dc *gg.Context, c CellOp) {
	dc.DrawRectangle(c.Rect.X, c.Rect.Y, c.Rect.W, c.Rect.H)
	dc.SetColor(mustColor(c.Fill))
	dc.FillPreserve()
	dc.SetColor(mustColor(GridLineColor))
	dc.SetLineWidth(1)
	dc.Stroke()
}

func paintShape(dc *gg.Context, r Rect, radius float64, st Style, label string) {
	if st.Shadow != "" {
		dc.DrawRoundedRectangle(r.X+ShadowOffset, r.Y+ShadowOffset, r.W, r.H, radius)
		dc.SetColor(mustColor(st.Shadow))
		dc.Fill()
	}

	dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, radius)
	dc.SetColor(mustColor(st.Fill))
	dc.FillPreserve()
	dc.SetColor(mustColor(st.Stroke))
	dc.SetLineWidth(1.5)
	dc.Stroke()

	if label != "" {
		cx, cy := r.Center()
		dc.SetColor(mustColor(st.Text))
		dc.DrawStringAnchored(label, cx, cy, 0.5, 0.5)
	}
}

func paintRoute(dc *gg.Context, r *RouteOp) {
	if len(r.Path) == 0 {
		return
	}
	dc.SetColor(mustColor(r.Stroke))
	dc.SetLineWidth(r.Width)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.MoveTo(r.Path[0][0], r.Path[0][1])
	for _, pt := range r.Path[1:] {
		dc.LineTo(pt[0], pt[1])
	}
	dc.Stroke()
	for _, pt := range r.Path {
		dc.DrawCircle(pt[0], pt[1], r.Width)
		dc.Fill()
	}
}

func paintPreview(dc *gg.Context, pv *PreviewOp) {
	r := pv.Rect
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	dc.SetColor(mustColor(pv.Fill))
	dc.Fill()

	dc.SetLineWidth(2)
	dc.SetColor(mustColor(pv.Stroke))
	dashedRect(dc, Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 2, H: r.H - 2}, pv.Dash, pv.DashOffset)
	dc.Stroke()

	// "+" glyph as two strokes so it scales with the preview.
	cx, cy := r.Center()
	arm := min(r.W, r.H) / 4
	dc.SetLineWidth(2)
	dc.SetColor(mustColor(pv.Stroke))
	dc.DrawLine(cx-arm, cy, cx+arm, cy)
	dc.DrawLine(cx, cy-arm, cx, cy+arm)
	dc.Stroke()
}

// dashedRect adds the dash segments of the rectangle's perimeter to the
// current path, shifted by offset along the perimeter.
func dashedRect(dc *gg.Context, r Rect, dash []float64, offset float64) {
	on, off := DashLength, DashGap
	if len(dash) >= 2 {
		on, off = dash[0], dash[1]
	}
	period := on + off
	if period <= 0 {
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		return
	}
	perimeter := 2 * (r.W + r.H)
	start := -math.Mod(offset, period)
	if start > 0 {
		start -= period
	}
	for d := start; d < perimeter; d += period {
		from, to := math.Max(d, 0), math.Min(d+on, perimeter)
		if to <= from {
			continue
		}
		x0, y0 := perimeterPoint(r, from)
		dc.MoveTo(x0, y0)
		// Corners inside a dash need their own vertex.
		for _, c := range []float64{r.W, r.W + r.H, 2*r.W + r.H} {
			if c > from && c < to {
				dc.LineTo(perimeterPoint(r, c))
			}
		}
		dc.LineTo(perimeterPoint(r, to))
	}
}

// perimeterPoint walks d pixels clockwise from the top-left corner.
func perimeterPoint(r Rect, d float64) (float64, float64) {
	switch {
	case d <= r.W:
		return r.X + d, r.Y
	case d <= r.W+r.H:
		return r.X + r.W, r.Y + d - r.W
	case d <= 2*r.W+r.H:
		return r.X + r.W - (d - r.W - r.H), r.Y + r.H
	default:
		return r.X, r.Y + r.H - (d - 2*r.W - r.H)
	}
}
