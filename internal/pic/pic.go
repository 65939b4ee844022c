// Package pic describes pictures in memory: where a pixel or a rectangular
// block of a row-major picture lives inside its byte buffer.
//
// Pixels may be narrower than a byte (4-bit alpha and luma formats) or not a
// whole number of bytes (12-bit YUV 4:2:0), so positions are computed in bits
// and rounded outward to bytes.
package pic

import "errors"

// Common errors for picture geometry.
var (
	// ErrInvalidDimensions is returned when width, height or depth is non-positive.
	ErrInvalidDimensions = errors.New("pic: invalid dimensions")

	// ErrDataTooSmall is returned when the buffer cannot hold the picture.
	ErrDataTooSmall = errors.New("pic: data buffer too small")
)

// Geometry is a row-major picture with a fixed number of bits per pixel.
// Rows are packed: the stride is Width*Bits/8.
type Geometry struct {
	Width  int
	Height int
	Bits   int
}

// Valid reports whether all dimensions are positive.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0 && g.Bits > 0
}

// ByteSize returns the number of bytes the whole picture occupies.
func (g Geometry) ByteSize() int {
	return (g.Width*g.Height*g.Bits + 7) / 8
}

// BitOffset returns the bit position of pixel (x, y).
func (g Geometry) BitOffset(x, y int) int {
	return (y*g.Width + x) * g.Bits
}

// Contains reports whether the w x h block at (x, y) lies inside the picture.
func (g Geometry) Contains(x, y, w, h int) bool {
	if x < 0 || y < 0 || w <= 0 || h <= 0 {
		return false
	}
	return x+w <= g.Width && y+h <= g.Height
}

// Span returns the byte range [off, off+n) touched by the w x h block at
// (x, y). Rows between the first and last block rows are included in full
// because the block is not contiguous in memory.
func (g Geometry) Span(x, y, w, h int) (off, n int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	startBit := g.BitOffset(x, y)
	endBit := g.BitOffset(x+w, y+h-1)
	off = startBit / 8
	end := (endBit + 7) / 8
	return off, end - off
}

// View binds a geometry to the memory holding the picture.
//
// Thread safety: View is safe for concurrent reads. Writes require external
// synchronization.
type View struct {
	data []byte
	geom Geometry
}

// NewView wraps data without copying. data must hold at least g.ByteSize() bytes.
func NewView(data []byte, g Geometry) (*View, error) {
	if !g.Valid() {
		return nil, ErrInvalidDimensions
	}
	if len(data) < g.ByteSize() {
		return nil, ErrDataTooSmall
	}
	return &View{data: data, geom: g}, nil
}

// Geometry returns the picture geometry.
func (v *View) Geometry() Geometry { return v.geom }

// PixelBytes returns the bytes of pixel (x, y) for byte-aligned depths.
// It returns nil for sub-byte depths or out-of-bounds coordinates.
func (v *View) PixelBytes(x, y int) []byte {
	if v.geom.Bits%8 != 0 || x < 0 || y < 0 || x >= v.geom.Width || y >= v.geom.Height {
		return nil
	}
	off := v.geom.BitOffset(x, y) / 8
	return v.data[off : off+v.geom.Bits/8]
}

// Nibble returns the 4-bit value of pixel (x, y) in a 4-bit picture.
// Even pixels occupy the low nibble of their byte.
func (v *View) Nibble(x, y int) byte {
	bit := v.geom.BitOffset(x, y)
	b := v.data[bit/8]
	if bit%8 == 0 {
		return b & 0x0F
	}
	return b >> 4
}

// SetNibble stores the low 4 bits of val as pixel (x, y) of a 4-bit picture.
func (v *View) SetNibble(x, y int, val byte) {
	bit := v.geom.BitOffset(x, y)
	p := &v.data[bit/8]
	if bit%8 == 0 {
		*p = (*p & 0xF0) | (val & 0x0F)
		return
	}
	*p = (*p & 0x0F) | (val << 4)
}
