package grounding

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const strokeWidth = 4

var (
	strokeColor = color.NRGBA{R: 255, A: 255}
	labelColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotate draws b onto the PNG in src, scaled to the image's own pixel
// size, with label written just above the rectangle. It returns a new PNG.
func Annotate(src []byte, b Box, label string) ([]byte, error) {
	decoded, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	img := imaging.Clone(decoded)
	bounds := img.Bounds()

	r := ToImage(b, bounds.Dx(), bounds.Dy()).Add(bounds.Min)
	strokeRect(img, r)
	if label != "" {
		drawLabel(img, r, label)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode annotated frame: %w", err)
	}
	return buf.Bytes(), nil
}

// strokeRect paints the edges of r inward with strokeWidth pixels.
func strokeRect(img draw.Image, r image.Rectangle) {
	paint := image.NewUniform(strokeColor)
	w := strokeWidth
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X+1, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w+1, r.Max.X+1, r.Max.Y+1),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y+1),
		image.Rect(r.Max.X-w+1, r.Min.Y, r.Max.X+1, r.Max.Y+1),
	}
	for _, e := range edges {
		e = e.Intersect(img.Bounds())
		if !e.Empty() {
			draw.Draw(img, e, paint, image.Point{}, draw.Src)
		}
	}
}

// drawLabel writes text on a filled tag above r, or inside r when r touches the top.
func drawLabel(img draw.Image, r image.Rectangle, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}

	width := d.MeasureString(text).Ceil() + 4
	height := face.Height + 2

	top := r.Min.Y - height
	if top < img.Bounds().Min.Y {
		top = r.Min.Y
	}
	tag := image.Rect(r.Min.X, top, r.Min.X+width, top+height).Intersect(img.Bounds())
	if tag.Empty() {
		return
	}
	draw.Draw(img, tag, image.NewUniform(strokeColor), image.Point{}, draw.Src)

	d.Dot = fixed.P(tag.Min.X+2, tag.Min.Y+face.Ascent+1)
	d.DrawString(text)
}
