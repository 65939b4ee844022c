package sim

import (
	"fmt"

	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/internal/blend"
	"github.com/gogpu/ppa/internal/pic"
)

// surface reads and writes the pixels of one picture.
type surface struct {
	view     *pic.View
	mode     ppa.ColorMode
	byteSwap bool
	rgbSwap  bool

	// fix is the color of alpha-only pixels.
	fix ppa.RGB
}

func newSurface(buf []byte, w, h int, mode ppa.ColorMode) (*surface, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("sim: color mode %v", mode)
	}
	v, err := pic.NewView(buf, pic.Geometry{Width: w, Height: h, Bits: mode.Bits()})
	if err != nil {
		return nil, fmt.Errorf("sim: %dx%d %v picture: %w", w, h, mode, err)
	}
	return &surface{view: v, mode: mode}, nil
}

// contains reports whether the w x h block at (x, y) is inside the picture.
func (s *surface) contains(x, y, w, h int) bool {
	return s.view.Geometry().Contains(x, y, w, h)
}

// at returns pixel (x, y) in straight alpha.
func (s *surface) at(x, y int) blend.Pixel {
	var p blend.Pixel
	switch s.mode {
	case ppa.ColorModeARGB8888:
		b := s.view.PixelBytes(x, y)
		if s.byteSwap {
			p = blend.Pixel{A: b[0], R: b[1], G: b[2], B: b[3]}
		} else {
			p = blend.Pixel{B: b[0], G: b[1], R: b[2], A: b[3]}
		}
	case ppa.ColorModeRGB888:
		b := s.view.PixelBytes(x, y)
		p = blend.Pixel{B: b[0], G: b[1], R: b[2], A: 0xFF}
	case ppa.ColorModeRGB565:
		b := s.view.PixelBytes(x, y)
		v := uint16(b[0]) | uint16(b[1])<<8
		if s.byteSwap {
			v = uint16(b[1]) | uint16(b[0])<<8
		}
		p = unpack565(v)
	case ppa.ColorModeL8, ppa.ColorModeYUV444, ppa.ColorModeYUV422:
		p = gray(s.view.PixelBytes(x, y)[0])
	case ppa.ColorModeL4:
		p = gray(s.view.Nibble(x, y) * 0x11)
	case ppa.ColorModeA8:
		p = blend.Pixel{R: s.fix.R, G: s.fix.G, B: s.fix.B, A: s.view.PixelBytes(x, y)[0]}
	case ppa.ColorModeA4:
		p = blend.Pixel{R: s.fix.R, G: s.fix.G, B: s.fix.B, A: s.view.Nibble(x, y) * 0x11}
	default:
		return blend.Pixel{A: 0xFF}
	}
	if s.rgbSwap {
		p.R, p.B = p.B, p.R
	}
	return p
}

// set stores p at (x, y). Modes without alpha drop it.
func (s *surface) set(x, y int, p blend.Pixel) {
	switch s.mode {
	case ppa.ColorModeARGB8888:
		b := s.view.PixelBytes(x, y)
		b[0], b[1], b[2], b[3] = p.B, p.G, p.R, p.A
	case ppa.ColorModeRGB888:
		b := s.view.PixelBytes(x, y)
		b[0], b[1], b[2] = p.B, p.G, p.R
	case ppa.ColorModeRGB565:
		b := s.view.PixelBytes(x, y)
		v := pack565(p)
		b[0], b[1] = byte(v), byte(v>>8)
	case ppa.ColorModeL8:
		s.view.PixelBytes(x, y)[0] = luma(p)
	case ppa.ColorModeL4:
		s.view.SetNibble(x, y, luma(p)>>4)
	case ppa.ColorModeYUV444:
		b := s.view.PixelBytes(x, y)
		b[0], b[1], b[2] = luma(p), 0x80, 0x80
	case ppa.ColorModeYUV422:
		b := s.view.PixelBytes(x, y)
		b[0], b[1] = luma(p), 0x80
	}
}

func gray(v byte) blend.Pixel { return blend.Pixel{R: v, G: v, B: v, A: 0xFF} }

// luma is the BT.601 luma of p.
func luma(p blend.Pixel) byte {
	return byte((77*uint32(p.R) + 150*uint32(p.G) + 29*uint32(p.B) + 128) >> 8)
}

func unpack565(v uint16) blend.Pixel {
	r := byte(v >> 11 & 0x1F)
	g := byte(v >> 5 & 0x3F)
	b := byte(v & 0x1F)
	return blend.Pixel{R: r<<3 | r>>2, G: g<<2 | g>>4, B: b<<3 | b>>2, A: 0xFF}
}

func pack565(p blend.Pixel) uint16 {
	return uint16(p.R>>3)<<11 | uint16(p.G>>2)<<5 | uint16(p.B>>3)
}

// applyAlpha applies an engine input alpha mode. value is the register
// value: the alpha itself or the ratio in 1/256 steps.
func applyAlpha(p blend.Pixel, mode ppa.AlphaMode, value uint32) blend.Pixel {
	switch mode {
	case ppa.AlphaFixValue:
		p.A = byte(value)
	case ppa.AlphaScale:
		p.A = byte(uint32(p.A) * value >> 8)
	case ppa.AlphaInvert:
		p.A = 0xFF - p.A
	}
	return p
}

func inKey(p blend.Pixel, k ppa.ColorKey) bool {
	return p.R >= k.Low.R && p.R <= k.High.R &&
		p.G >= k.Low.G && p.G <= k.High.G &&
		p.B >= k.Low.B && p.B <= k.High.B
}
