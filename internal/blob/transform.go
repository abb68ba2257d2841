package blob

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"

	"lms/internal/media"
)

const DefaultJPEGQuality = 85

var ErrInvalidImage = errors.New("invalid image data")

type Transformed struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// FillImage scales src to cover width x height and crops the overflow.
// Opaque sources are encoded as JPEG, anything with transparency as PNG.
func FillImage(src io.Reader, width, height int, gravity string, quality int) (*Transformed, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("fill dimensions must be positive")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidImage
	}

	crop := fillCropRect(bounds, width, height, gravity)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

	buf := bytes.NewBuffer(nil)
	mimeType := "image/jpeg"
	if isOpaque(img) {
		if err := jpeg.Encode(buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	} else {
		mimeType = "image/png"
		if err := png.Encode(buf, dst); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
	}

	return &Transformed{
		Data:     buf.Bytes(),
		MimeType: mimeType,
		Width:    width,
		Height:   height,
	}, nil
}

// fillCropRect returns the largest region of bounds with the target aspect
// ratio. Horizontal overflow is cut evenly; vertical overflow keeps the upper
// part of the frame for face gravity, where portraits put the subject.
func fillCropRect(bounds image.Rectangle, width, height int, gravity string) image.Rectangle {
	srcW, srcH := bounds.Dx(), bounds.Dy()

	cropW, cropH := srcW, srcW*height/width
	if cropH > srcH {
		cropW, cropH = srcH*width/height, srcH
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}

	x := bounds.Min.X + (srcW-cropW)/2
	y := bounds.Min.Y + (srcH-cropH)/2
	if gravity == media.GravityFaces {
		y = bounds.Min.Y + (srcH-cropH)/4
	}

	return image.Rect(x, y, x+cropW, y+cropH)
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
