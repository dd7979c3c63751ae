package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Canvas size in pixels.
const (
	CanvasWidth  = 1000
	CanvasHeight = 800
	canvasMargin = 40
)

// ptToPx converts typographic points to pixels at 96 dpi.
const ptToPx = 96.0 / 72.0

// screen maps world coordinates onto the canvas with equal aspect and the
// northing axis pointing up.
type screen struct {
	vp     Viewport
	scale  float64
	dx, dy float64
}

func newScreen(vp Viewport) screen {
	w, h := vp.Width(), vp.Height()
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	innerW := float64(CanvasWidth - 2*canvasMargin)
	innerH := float64(CanvasHeight - 2*canvasMargin)
	scale := math.Min(innerW/w, innerH/h)
	return screen{
		vp:    vp,
		scale: scale,
		dx:    canvasMargin + (innerW-w*scale)/2,
		dy:    canvasMargin + (innerH-h*scale)/2,
	}
}

func (s screen) xy(p orb.Point) (float64, float64) {
	return s.dx + (p[0]-s.vp.Min[0])*s.scale, s.dy + (s.vp.Max[1]-p[1])*s.scale
}

func (s screen) points(ls []orb.Point) string {
	parts := make([]string, 0, len(ls))
	for _, p := range ls {
		x, y := s.xy(p)
		parts = append(parts, num(x)+","+num(y))
	}
	return strings.Join(parts, " ")
}

// WriteSVG draws the plan. Label sizes come from opts; everything else is
// taken from the plan itself.
func WriteSVG(w io.Writer, p *Plan, opts Options) error {
	s := newScreen(p.Viewport)
	c := p.Colors
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`+"\n",
		CanvasWidth, CanvasHeight, CanvasWidth, CanvasHeight)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", c.Background)

	if p.ShowGrid {
		writeGrid(&buf, s, p)
	}

	fmt.Fprintf(&buf, `<polygon points="%s" fill="%s" fill-opacity="%g" stroke="none"/>`+"\n",
		s.points(p.Fill), FillColor, FillOpacity)
	fmt.Fprintf(&buf, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
		s.points(p.Boundary), c.Line)

	edgePx := opts.EdgeLabelSize * ptToPx
	for _, l := range p.EdgeLabels {
		x, y := s.xy(l.Position)
		// SVG rotates clockwise with y down.
		fmt.Fprintf(&buf, `<text transform="translate(%s,%s) rotate(%s)" font-size="%s" font-weight="bold" fill="%s" text-anchor="middle" stroke="%s" stroke-opacity="0.4" stroke-width="3" paint-order="stroke">`,
			num(x), num(y), num(-l.Rotation), num(edgePx), EdgeTextColor, c.Background)
		writeLines(&buf, l.Text, "0", edgePx)
		buf.WriteString("</text>\n")
	}

	stnPx := opts.StationLabelSize * ptToPx
	for _, l := range p.StationLabels {
		x, y := s.xy(l.Position)
		fmt.Fprintf(&buf, `<text x="%s" y="%s" font-size="%s" font-weight="bold" fill="%s" text-anchor="middle" dominant-baseline="middle">`,
			num(x), num(y), num(stnPx), StationTextColor)
		xml.EscapeText(&buf, []byte(l.Text))
		buf.WriteString("</text>\n")
	}
	for _, l := range p.StationLabels {
		x, y := s.xy(l.Marker)
		fmt.Fprintf(&buf, `<circle cx="%s" cy="%s" r="4" fill="%s" stroke="%s"/>`+"\n",
			num(x), num(y), MarkerColor, MarkerStrokeColor)
	}

	writeAreaLabel(&buf, s, p.AreaLabel)
	buf.WriteString("</svg>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func writeGrid(buf *bytes.Buffer, s screen, p *Plan) {
	x0, y0 := s.xy(p.Viewport.Min)
	x1, y1 := s.xy(p.Viewport.Max)
	buf.WriteString(`<g stroke="` + p.Colors.Grid + `" stroke-width="0.8" stroke-dasharray="6,4" stroke-opacity="0.7">` + "\n")
	for _, gx := range p.GridX {
		x, _ := s.xy(orb.Point{gx, 0})
		fmt.Fprintf(buf, `<line x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n", num(x), num(y0), num(x), num(y1))
	}
	for _, gy := range p.GridY {
		_, y := s.xy(orb.Point{0, gy})
		fmt.Fprintf(buf, `<line x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n", num(x0), num(y), num(x1), num(y))
	}
	buf.WriteString("</g>\n")

	fmt.Fprintf(buf, `<g fill="%s" font-size="10">`+"\n", p.Colors.Text)
	for _, gx := range p.GridX {
		x, _ := s.xy(orb.Point{gx, 0})
		fmt.Fprintf(buf, `<text x="%s" y="%s" text-anchor="middle">%s</text>`+"\n", num(x), num(y0+14), num(gx))
	}
	for _, gy := range p.GridY {
		_, y := s.xy(orb.Point{0, gy})
		fmt.Fprintf(buf, `<text x="%s" y="%s" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n", num(x0-4), num(y), num(gy))
	}
	buf.WriteString("</g>\n")
}

func writeAreaLabel(buf *bytes.Buffer, s screen, l AreaLabel) {
	const size = 11 * ptToPx
	lines := strings.Split(l.Text, "\n")
	widest := 0
	for _, ln := range lines {
		if n := len([]rune(ln)); n > widest {
			widest = n
		}
	}
	x, y := s.xy(l.Position)
	w := float64(widest)*size*0.62 + 8
	h := float64(len(lines))*size*1.2 + 6
	fmt.Fprintf(buf, `<rect x="%s" y="%s" width="%s" height="%s" rx="4" fill="white" fill-opacity="0.9" stroke="%s"/>`+"\n",
		num(x-w/2), num(y-size-3), num(w), num(h), AreaBoxStroke)
	fmt.Fprintf(buf, `<text x="%s" y="%s" font-size="%s" font-weight="bold" fill="%s" text-anchor="middle">`,
		num(x), num(y), num(size), AreaTextColor)
	writeLines(buf, l.Text, num(x), size)
	buf.WriteString("</text>\n")
}

// writeLines emits one tspan per line, stacked around the anchor.
func writeLines(buf *bytes.Buffer, text, x string, size float64) {
	for i, ln := range strings.Split(text, "\n") {
		dy := "0"
		if i > 0 {
			dy = num(size * 1.2)
		}
		fmt.Fprintf(buf, `<tspan x="%s" dy="%s">`, x, dy)
		xml.EscapeText(buf, []byte(ln))
		buf.WriteString("</tspan>")
	}
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
