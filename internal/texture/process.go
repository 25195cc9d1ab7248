package texture

import (
	"image"
	"image/draw"

	"github.com/disintegration/gift"
	xdraw "golang.org/x/image/draw"
)

// Filters are optional adjustments applied after rendering. Zero values are
// skipped.
type Filters struct {
	Blur       float32 // Gaussian sigma in pixels
	Contrast   float32 // percentage in [-100, 100]
	Brightness float32 // percentage in [-100, 100]
	Gamma      float32 // 1 is neutral
}

func (f Filters) list() []gift.Filter {
	var filters []gift.Filter
	if f.Blur > 0 {
		filters = append(filters, gift.GaussianBlur(f.Blur))
	}
	if f.Contrast != 0 {
		filters = append(filters, gift.Contrast(f.Contrast))
	}
	if f.Brightness != 0 {
		filters = append(filters, gift.Brightness(f.Brightness))
	}
	if f.Gamma > 0 && f.Gamma != 1 {
		filters = append(filters, gift.Gamma(f.Gamma))
	}
	return filters
}

// Empty reports whether no filter is enabled.
func (f Filters) Empty() bool {
	return len(f.list()) == 0
}

// newLike allocates an image of the same kind as src so 16-bit heights keep
// their precision.
func newLike(src image.Image, r image.Rectangle) draw.Image {
	if _, ok := src.(*image.Gray16); ok {
		return image.NewGray16(r)
	}
	return image.NewNRGBA(r)
}

// PostProcess applies the enabled filters. src is returned unchanged when no
// filter is enabled.
func PostProcess(src image.Image, f Filters) image.Image {
	filters := f.list()
	if len(filters) == 0 {
		return src
	}
	g := gift.New(filters...)
	dst := newLike(src, g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// Thumbnail scales src down (or up) to size×size with Catmull-Rom filtering.
func Thumbnail(src image.Image, size int) (image.Image, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	dst := newLike(src, image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}
