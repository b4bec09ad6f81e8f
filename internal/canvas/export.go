package canvas

import (
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Axis is the seconds ruler drawn in a strip below the surface.
type Axis struct {
	Left    float64
	Width   float64
	Seconds int
	Height  float64
}

// Ticks returns the x position of each whole second.
func (a Axis) Ticks() []float64 {
	if a.Seconds <= 0 {
		return nil
	}
	step := a.Width / float64(a.Seconds)
	ticks := make([]float64, 0, a.Seconds+1)
	for i := 0; i <= a.Seconds; i++ {
		ticks = append(ticks, a.Left+float64(i)*step)
	}
	return ticks
}

func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// WriteSVG renders a frame, plus the axis strip when axis is non-nil.
func WriteSVG(w io.Writer, frame Frame, axis *Axis) error {
	height := frame.Height
	if axis != nil {
		height += axis.Height
	}

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%s" height="%s" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, num(frame.Width), num(height), Background.CSS()))

	for _, l := range frame.Lines {
		svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`+"\n",
			num(l.X1), num(l.Y1), num(l.X2), num(l.Y2), l.Stroke.CSS(), num(l.StrokeWidth)))
	}
	for _, l := range frame.Labels {
		svg.WriteString(fmt.Sprintf(`<text x="%s" y="%s" fill="%s" font-size="12px" font-family="sans-serif">%s</text>`+"\n",
			num(l.X), num(l.Y+4), l.Fill.CSS(), html.EscapeString(l.Text)))
	}
	for _, r := range frame.Rects {
		svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" rx="%s" ry="%s" fill="%s"/>`+"\n",
			num(r.X), num(r.Y), num(r.Width), num(r.Height), num(r.Radius), num(r.Radius), r.Fill.CSS()))
	}

	if axis != nil {
		y := frame.Height + 10
		svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
			num(axis.Left), num(y), num(axis.Left+axis.Width), num(y), White.CSS()))
		for i, x := range axis.Ticks() {
			svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
				num(x), num(y-5), num(x), num(y+5), White.CSS()))
			if i%5 == 0 {
				svg.WriteString(fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" fill="%s" font-size="11px" font-family="sans-serif">%ds</text>`+"\n",
					num(x), num(frame.Height+25), White.CSS(), i))
			}
		}
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

// WritePNG rasterises a frame. Corner radii are ignored.
func WritePNG(w io.Writer, frame Frame, axis *Axis) error {
	img := Rasterize(frame, axis)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Rasterize draws a frame into an RGBA image.
func Rasterize(frame Frame, axis *Axis) *image.RGBA {
	height := frame.Height
	if axis != nil {
		height += axis.Height
	}
	bounds := image.Rect(0, 0, int(math.Ceil(frame.Width)), int(math.Ceil(height)))
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(rgba(Background)), image.Point{}, draw.Src)

	for _, l := range frame.Lines {
		strokeLine(img, l)
	}
	for _, r := range frame.Rects {
		box := image.Rect(
			int(math.Round(r.X)), int(math.Round(r.Y)),
			int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
		)
		draw.Draw(img, box, image.NewUniform(rgba(r.Fill)), image.Point{}, draw.Over)
	}
	for _, l := range frame.Labels {
		drawText(img, l.Text, int(math.Round(l.X)), int(math.Round(l.Y+4)), l.Fill)
	}

	if axis != nil {
		y := frame.Height + 10
		strokeLine(img, Line{X1: axis.Left, Y1: y, X2: axis.Left + axis.Width, Y2: y, StrokeWidth: 1, Stroke: White})
		for i, x := range axis.Ticks() {
			strokeLine(img, Line{X1: x, Y1: y - 5, X2: x, Y2: y + 5, StrokeWidth: 1, Stroke: White})
			if i%5 == 0 {
				text := strconv.Itoa(i) + "s"
				width := font.MeasureString(basicfont.Face7x13, text).Ceil()
				drawText(img, text, int(math.Round(x))-width/2, int(math.Round(frame.Height+25)), White)
			}
		}
	}
	return img
}

func rgba(c Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

func drawText(img *image.RGBA, text string, x, y int, c Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(rgba(c)),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func strokeLine(img *image.RGBA, l Line) {
	src := image.NewUniform(rgba(l.Stroke))
	half := math.Max(l.StrokeWidth, 1) / 2
	dx, dy := l.X2-l.X1, l.Y2-l.Y1
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x, y := l.X1+dx*t, l.Y1+dy*t
		dot := image.Rect(
			int(math.Floor(x-half)), int(math.Floor(y-half)),
			int(math.Ceil(x+half)), int(math.Ceil(y+half)),
		)
		draw.Draw(img, dot, src, image.Point{}, draw.Over)
	}
}
