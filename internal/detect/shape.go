package detect

import (
	"fmt"
	"image"
	"math"
)

// Geometry thresholds for rejecting objects detected as phones that are
// really mice, wallets or similar small rectangles.
const (
	minPhoneArea        = 5000
	maxPhoneArea        = 150000
	minPhoneAspectRatio = 1.35
)

// ShapeVerdict is the outcome of the phone shape filter for one box.
type ShapeVerdict struct {
	Valid  bool
	Reason string
}

// CheckPhoneShape applies area and aspect-ratio checks to a phone
// bounding box. Pure function of the box dimensions.
func CheckPhoneShape(box image.Rectangle) ShapeVerdict {
	w, h := box.Dx(), box.Dy()
	area := w * h

	if area < minPhoneArea {
		return ShapeVerdict{Reason: "Too Small"}
	}
	if area > maxPhoneArea {
		return ShapeVerdict{Reason: "Too Big"}
	}

	short := min(w, h)
	if short == 0 {
		return ShapeVerdict{Reason: "Error"}
	}
	ratio := math.Round(float64(max(w, h))/float64(short)*100) / 100

	if ratio < minPhoneAspectRatio {
		return ShapeVerdict{Reason: fmt.Sprintf("Too Square (%g)", ratio)}
	}
	return ShapeVerdict{Valid: true, Reason: "Valid"}
}
