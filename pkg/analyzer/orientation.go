package analyzer

import (
	"image"

	"github.com/disintegration/imaging"
)

// Orientation is the EXIF orientation of the stored pixels (1-8)
type Orientation int

// EXIF orientation values
const (
	OrientationUnknown     Orientation = 0
	OrientationUp          Orientation = 1
	OrientationUpMirrored  Orientation = 2
	OrientationDown        Orientation = 3
	OrientationDownMirror  Orientation = 4
	OrientationLeftMirror  Orientation = 5
	OrientationRight       Orientation = 6 // stored rotated 90° counter-clockwise
	OrientationRightMirror Orientation = 7
	OrientationLeft        Orientation = 8 // stored rotated 90° clockwise
)

// NormalizeOrientation returns an image whose pixel order matches its visual
// orientation. Upright or unknown orientation returns the input unchanged; every
// other case returns a new image.
func NormalizeOrientation(img image.Image, o Orientation) image.Image {
	switch o {
	case OrientationUpMirrored:
		return imaging.FlipH(img)
	case OrientationDown:
		return imaging.Rotate180(img)
	case OrientationDownMirror:
		return imaging.FlipV(img)
	case OrientationLeftMirror:
		return imaging.Transpose(img)
	case OrientationRight:
		return imaging.Rotate270(img)
	case OrientationRightMirror:
		return imaging.Transverse(img)
	case OrientationLeft:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// SwapsDimensions reports whether normalizing swaps width and height
func (o Orientation) SwapsDimensions() bool {
	return o >= OrientationLeftMirror && o <= OrientationLeft
}
