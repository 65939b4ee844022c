package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/internal/blend"
)

func TestSurfaceRoundTrip(t *testing.T) {
	p := blend.Pixel{R: 0xF8, G: 0xFC, B: 0x08, A: 0x80}
	tests := []struct {
		mode ppa.ColorMode
		want blend.Pixel
	}{
		{ppa.ColorModeARGB8888, p},
		{ppa.ColorModeRGB888, blend.Pixel{R: 0xF8, G: 0xFC, B: 0x08, A: 0xFF}},
		{ppa.ColorModeRGB565, blend.Pixel{R: 0xFF, G: 0xFF, B: 0x08, A: 0xFF}},
		{ppa.ColorModeL8, gray(luma(p))},
		{ppa.ColorModeL4, gray(luma(p) >> 4 * 0x11)},
		{ppa.ColorModeYUV444, gray(luma(p))},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			buf := make([]byte, tt.mode.PixelBytes(4, 2))
			s, err := newSurface(buf, 4, 2, tt.mode)
			require.NoError(t, err)
			s.set(3, 1, p)
			assert.Equal(t, tt.want, s.at(3, 1))
			assert.Equal(t, blend.Pixel{A: pixelAlpha(tt.mode)}, s.at(0, 0))
		})
	}
}

// pixelAlpha is the alpha an untouched zero pixel reads back with.
func pixelAlpha(m ppa.ColorMode) byte {
	if m == ppa.ColorModeARGB8888 {
		return 0
	}
	return 0xFF
}

func TestSurfaceARGBLayout(t *testing.T) {
	buf := []byte{0x10, 0x20, 0x30, 0x40}
	s, err := newSurface(buf, 1, 1, ppa.ColorModeARGB8888)
	require.NoError(t, err)

	assert.Equal(t, blend.Pixel{B: 0x10, G: 0x20, R: 0x30, A: 0x40}, s.at(0, 0))
	s.byteSwap = true
	assert.Equal(t, blend.Pixel{A: 0x10, R: 0x20, G: 0x30, B: 0x40}, s.at(0, 0))
	s.rgbSwap = true
	assert.Equal(t, blend.Pixel{A: 0x10, R: 0x40, G: 0x30, B: 0x20}, s.at(0, 0))
}

func TestSurfaceRGB565ByteSwap(t *testing.T) {
	buf := []byte{0xF8, 0x00}
	s, err := newSurface(buf, 1, 1, ppa.ColorModeRGB565)
	require.NoError(t, err)
	assert.Equal(t, blend.Pixel{G: 0x1C, B: 0xC6, A: 0xFF}, s.at(0, 0))
	s.byteSwap = true
	assert.Equal(t, blend.Pixel{R: 0xFF, A: 0xFF}, s.at(0, 0))
}

func TestSurfaceAlphaOnly(t *testing.T) {
	buf := []byte{0x3C}
	s, err := newSurface(buf, 2, 1, ppa.ColorModeA4)
	require.NoError(t, err)
	s.fix = ppa.RGB{R: 1, G: 2, B: 3}
	a0, a1 := s.at(0, 0), s.at(1, 0)
	assert.Equal(t, ppa.RGB{R: 1, G: 2, B: 3}, ppa.RGB{R: a0.R, G: a0.G, B: a0.B})
	assert.ElementsMatch(t, []byte{0x33, 0xCC}, []byte{a0.A, a1.A})
}

func TestNewSurfaceRejects(t *testing.T) {
	_, err := newSurface(make([]byte, 4), 2, 2, ppa.ColorModeARGB8888)
	assert.Error(t, err)
	_, err = newSurface(make([]byte, 64), 2, 2, ppa.ColorMode(99))
	assert.Error(t, err)
}

func TestApplyAlpha(t *testing.T) {
	p := blend.Pixel{R: 1, A: 200}
	assert.Equal(t, byte(200), applyAlpha(p, ppa.AlphaNoChange, 7).A)
	assert.Equal(t, byte(7), applyAlpha(p, ppa.AlphaFixValue, 7).A)
	assert.Equal(t, byte(100), applyAlpha(p, ppa.AlphaScale, 128).A)
	assert.Equal(t, byte(55), applyAlpha(p, ppa.AlphaInvert, 0).A)
}

func TestInKey(t *testing.T) {
	k := ppa.ColorKey{Low: ppa.RGB{R: 10, G: 10, B: 10}, High: ppa.RGB{R: 20, G: 20, B: 20}}
	assert.True(t, inKey(blend.Pixel{R: 10, G: 20, B: 15}, k))
	assert.False(t, inKey(blend.Pixel{R: 9, G: 15, B: 15}, k))
	assert.False(t, inKey(blend.Pixel{R: 15, G: 15, B: 21}, k))
}

func TestRotateSource(t *testing.T) {
	// A 3x2 image; (x, y) are output coordinates.
	tests := []struct {
		a      ppa.RotationAngle
		x, y   int
		sx, sy int
	}{
		{ppa.Rotate0, 1, 1, 1, 1},
		{ppa.Rotate90, 0, 0, 2, 0},
		{ppa.Rotate90, 1, 2, 0, 1},
		{ppa.Rotate180, 0, 0, 2, 1},
		{ppa.Rotate270, 0, 0, 0, 1},
		{ppa.Rotate270, 1, 2, 2, 0},
	}
	for _, tt := range tests {
		sx, sy := rotateSource(tt.x, tt.y, 3, 2, tt.a)
		assert.Equal(t, [2]int{tt.sx, tt.sy}, [2]int{sx, sy}, "%v (%d,%d)", tt.a, tt.x, tt.y)
	}
}

func TestScaled(t *testing.T) {
	assert.Equal(t, 8, scaled(4, 2, 0))
	assert.Equal(t, 6, scaled(4, 1, 8))
	assert.Equal(t, 1, scaled(4, 0, 4))
}
