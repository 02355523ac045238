// Package annotate draws monitor overlays onto frames before they are
// streamed. Presentation only: nothing here feeds back into control flow.
package annotate

import (
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// Colors follow the original overlay scheme.
	ColorValid    = color.RGBA{G: 255, A: 255}
	ColorRejected = color.RGBA{R: 255, A: 255}
	ColorActive   = color.RGBA{R: 255, A: 255}
	ColorPaused   = color.RGBA{R: 255, G: 255, A: 255}
	ColorFree     = color.RGBA{G: 255, A: 255}
)

// DrawValid marks an accepted detection with a thick green box and its
// uppercased label.
func DrawValid(frame *gocv.Mat, label string, box image.Rectangle) {
	gocv.Rectangle(frame, box, ColorValid, 4)
	gocv.PutText(frame, strings.ToUpper(label), image.Pt(box.Min.X, box.Min.Y-10),
		gocv.FontHersheySimplex, 0.6, ColorValid, 2)
}

// DrawRejected marks a filtered-out phone box in red with the rejection
// reason, so the operator can see why it was ignored.
func DrawRejected(frame *gocv.Mat, reason string, box image.Rectangle) {
	gocv.Rectangle(frame, box, ColorRejected, 2)
	gocv.PutText(frame, "IGNORED: "+reason, image.Pt(box.Min.X, box.Min.Y-10),
		gocv.FontHersheySimplex, 0.5, ColorRejected, 1)
}

// DrawBanner paints the detection banner.
func DrawBanner(frame *gocv.Mat) {
	gocv.PutText(frame, "DETECTED!", image.Pt(20, 80),
		gocv.FontHersheySimplex, 1.0, ColorRejected, 3)
}

// DrawStatus paints the status line in the top-left corner.
func DrawStatus(frame *gocv.Mat, text string, c color.RGBA) {
	gocv.PutText(frame, text, image.Pt(20, 40),
		gocv.FontHersheySimplex, 0.7, c, 2)
}

// EncodeJPEG encodes the frame for the MJPEG stream.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame,
		[]int{gocv.IMWriteJpegQuality, 85})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
