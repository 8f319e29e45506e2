package ioformat

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
)

// Evaluation resolution of the 2D benchmark.
const (
	EvalWidth  = 640
	EvalHeight = 480
)

// LabelImage is a single-channel image flattened row-major.
type LabelImage struct {
	Width, Height int
	Pix           []int64
}

// ReadLabelImage decodes a single-channel PNG. 8 and 16 bit grey values and
// palette indices are taken as raw label values. With resize set the image
// is scaled to EvalWidth x EvalHeight with nearest-neighbour sampling so no
// new label values are introduced.
func ReadLabelImage(fs fsutil.FileSystem, path string, resize bool) (*LabelImage, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, faults.User("unable to load %s: %v", path, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, faults.User("unable to decode %s: %v", path, err)
	}
	labels, err := toGray16(img)
	if err != nil {
		return nil, faults.User("%s: %v", path, err)
	}
	if resize {
		b := labels.Bounds()
		if b.Dx() != EvalWidth || b.Dy() != EvalHeight {
			dst := image.NewGray16(image.Rect(0, 0, EvalWidth, EvalHeight))
			draw.NearestNeighbor.Scale(dst, dst.Bounds(), labels, b, draw.Src, nil)
			labels = dst
		}
	}
	return flatten(labels), nil
}

func toGray16(img image.Image) (*image.Gray16, error) {
	b := img.Bounds()
	out := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.SetGray16(x, y, src.Gray16At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.SetGray16(x, y, color.Gray16{Y: uint16(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)})
			}
		}
	case *image.Paletted:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.SetGray16(x, y, color.Gray16{Y: uint16(src.ColorIndexAt(b.Min.X+x, b.Min.Y+y))})
			}
		}
	default:
		return nil, faults.User("label image has multiple channels (%T)", img)
	}
	return out, nil
}

func flatten(img *image.Gray16) *LabelImage {
	b := img.Bounds()
	li := &LabelImage{Width: b.Dx(), Height: b.Dy(), Pix: make([]int64, 0, b.Dx()*b.Dy())}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			li.Pix = append(li.Pix, int64(img.Gray16At(x, y).Y))
		}
	}
	return li
}
