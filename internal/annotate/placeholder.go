package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder renders the color-bar frame streamed before the first
// camera tick (or when the camera is down), captioned with the given
// text.
func Placeholder(width, height int, caption string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Color bars: White, Yellow, Cyan, Green, Magenta, Red, Blue, Black
	colors := []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 255, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
	}

	barWidth := width / len(colors)
	for y := range height {
		for x := range width {
			barIndex := x / barWidth
			if barIndex >= len(colors) {
				barIndex = len(colors) - 1
			}
			img.Set(x, y, colors[barIndex])
		}
	}

	if caption != "" {
		drawCaption(img, caption)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawCaption(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	x := (img.Bounds().Dx() - textWidth) / 2
	y := img.Bounds().Dy() / 2

	// Black backing strip keeps the caption readable on the bars.
	pad := 6
	strip := image.Rect(x-pad, y-face.Ascent-pad, x+textWidth+pad, y+face.Descent+pad)
	for py := strip.Min.Y; py < strip.Max.Y; py++ {
		for px := strip.Min.X; px < strip.Max.X; px++ {
			img.Set(px, py, color.RGBA{A: 255})
		}
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
