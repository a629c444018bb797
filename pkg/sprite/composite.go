package sprite

import (
	"fmt"
)

// Separate derives a player-color mask from a sprite pair. The same source
// shape is decoded twice with two palette color offsets; wherever the two
// rasters disagree the renderer is meant to substitute a dynamic tint, so
// the mask is opaque white exactly at the differing pixels. The returned
// image is the primary sprite itself.
//
// Identical inputs therefore yield a fully transparent mask.
func Separate(primary, secondary *Sprite) (mask, img *Sprite, err error) {
	if primary == nil || secondary == nil {
		return nil, nil, fmt.Errorf("%w: separate needs two sprites", ErrDecode)
	}
	if primary.Width != secondary.Width || primary.Height != secondary.Height {
		return nil, nil, fmt.Errorf("%w: separate dimensions differ (%dx%d vs %dx%d)",
			ErrDecode, primary.Width, primary.Height, secondary.Width, secondary.Height)
	}

	mask = &Sprite{
		DeltaX:  primary.DeltaX,
		DeltaY:  primary.DeltaY,
		Width:   primary.Width,
		Height:  primary.Height,
		OffsetX: primary.OffsetX,
		OffsetY: primary.OffsetY,
		Pixels:  make([]byte, primary.area()*bytesPerPixel),
	}

	for i := 0; i < primary.area(); i++ {
		off := i * bytesPerPixel
		a := primary.Pixels[off : off+bytesPerPixel]
		b := secondary.Pixels[off : off+bytesPerPixel]
		if a[0] != b[0] || a[1] != b[1] || a[2] != b[2] || a[3] != b[3] {
			mask.Pixels[off+0] = 0xff
			mask.Pixels[off+1] = 0xff
			mask.Pixels[off+2] = 0xff
			mask.Pixels[off+3] = 0xff
		}
	}

	return mask, primary, nil
}
