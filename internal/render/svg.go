package render

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// SVG writes the scene as a standalone SVG document, pass by pass.
func SVG(w io.Writer, s *Scene) error {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		s.Width, s.Height, s.Width, s.Height)

	b.WriteString(`<g id="cells">` + "\n")
	for _, c := range s.Cells {
		fmt.Fprintf(&b, `<rect x="%g" y="%g" width="%g" height="%g" fill="%s" stroke="%s" data-state="%s"/>`+"\n",
			c.Rect.X, c.Rect.Y, c.Rect.W, c.Rect.H, c.Fill, GridLineColor, c.State)
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g id="objects">` + "\n")
	for _, o := range s.Objects {
		writeShape(&b, o.Rect, o.Radius, o.Style, o.Label)
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g id="furniture">` + "\n")
	for _, f := range s.Furniture {
		writeShape(&b, f.Rect, f.Radius, f.Style, f.Label)
	}
	b.WriteString("</g>\n")

	if r := s.Route; r != nil {
		pts := make([]string, 0, len(r.Path))
		for _, p := range r.Path {
			pts = append(pts, fmt.Sprintf("%g,%g", p[0], p[1]))
		}
		fmt.Fprintf(&b, `<polyline id="route" points="%s" fill="none" stroke="%s" stroke-width="%g" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
			strings.Join(pts, " "), r.Stroke, r.Width)
	}

	if pv := s.Preview; pv != nil {
		r := pv.Rect
		cx, cy := r.Center()
		fmt.Fprintf(&b, `<g id="preview"><rect x="%g" y="%g" width="%g" height="%g" fill="%s" stroke="%s" stroke-width="2" stroke-dasharray="%g %g" stroke-dashoffset="%g"/>`,
			r.X, r.Y, r.W, r.H, pv.Fill, pv.Stroke, pv.Dash[0], pv.Dash[1], pv.DashOffset)
		fmt.Fprintf(&b, `<text x="%g" y="%g" text-anchor="middle" dominant-baseline="central" fill="%s">%s</text></g>`+"\n",
			cx, cy, pv.Stroke, html.EscapeString(pv.Glyph))
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeShape(b *strings.Builder, r Rect, radius float64, st Style, label string) {
	if st.Shadow != "" {
		fmt.Fprintf(b, `<rect x="%g" y="%g" width="%g" height="%g" rx="%g" fill="%s"/>`+"\n",
			r.X+ShadowOffset, r.Y+ShadowOffset, r.W, r.H, radius, st.Shadow)
	}
	fmt.Fprintf(b, `<rect x="%g" y="%g" width="%g" height="%g" rx="%g" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		r.X, r.Y, r.W, r.H, radius, st.Fill, st.Stroke)
	if label != "" {
		cx, cy := r.Center()
		fmt.Fprintf(b, `<text x="%g" y="%g" text-anchor="middle" dominant-baseline="central" font-family="monospace" font-size="%g" fill="%s">%s</text>`+"\n",
			cx, cy, labelFontSize, st.Text, html.EscapeString(label))
	}
}
