package ppa

// ColorMode is a pixel storage format understood by the PPA engines and the
// 2D-DMA. Which modes an engine port accepts is checked at submission.
type ColorMode uint8

const (
	// ColorModeARGB8888 is 32-bit ARGB, stored B, G, R, A in memory.
	ColorModeARGB8888 ColorMode = iota

	// ColorModeRGB888 is 24-bit RGB, stored B, G, R in memory.
	ColorModeRGB888

	// ColorModeRGB565 is 16-bit RGB in a little-endian halfword.
	ColorModeRGB565

	// ColorModeYUV420 is 12-bit packed YUV with 2x2 chroma subsampling.
	ColorModeYUV420

	// ColorModeYUV444 is 24-bit YUV. The SRM engine reaches it through the
	// 2D-DMA color space converter.
	ColorModeYUV444

	// ColorModeYUV422 is 16-bit YUV with horizontal chroma subsampling.
	// Input only, through the 2D-DMA color space converter.
	ColorModeYUV422

	// ColorModeL8 is an 8-bit lookup-table index.
	ColorModeL8

	// ColorModeL4 is a 4-bit lookup-table index.
	ColorModeL4

	// ColorModeA8 is 8-bit alpha only.
	ColorModeA8

	// ColorModeA4 is 4-bit alpha only.
	ColorModeA4

	colorModeCount
)

// ColorSpace groups color modes by what their samples mean.
type ColorSpace uint8

const (
	ColorSpaceARGB ColorSpace = iota
	ColorSpaceRGB
	ColorSpaceYUV
	ColorSpaceCLUT
	ColorSpaceAlpha
)

// ColorModeInfo contains metadata about a color mode.
type ColorModeInfo struct {
	// Bits is the storage size of one pixel.
	Bits int

	// Space is the color space of the samples.
	Space ColorSpace

	// ByteSwap reports whether the engines can byte-swap pixels of this mode.
	ByteSwap bool

	// ChromaSubsampled reports 2x2 subsampling, which requires even
	// geometry.
	ChromaSubsampled bool
}

var colorModeTable = [colorModeCount]ColorModeInfo{
	ColorModeARGB8888: {Bits: 32, Space: ColorSpaceARGB, ByteSwap: true},
	ColorModeRGB888:   {Bits: 24, Space: ColorSpaceRGB},
	ColorModeRGB565:   {Bits: 16, Space: ColorSpaceRGB, ByteSwap: true},
	ColorModeYUV420:   {Bits: 12, Space: ColorSpaceYUV, ChromaSubsampled: true},
	ColorModeYUV444:   {Bits: 24, Space: ColorSpaceYUV},
	ColorModeYUV422:   {Bits: 16, Space: ColorSpaceYUV},
	ColorModeL8:       {Bits: 8, Space: ColorSpaceCLUT},
	ColorModeL4:       {Bits: 4, Space: ColorSpaceCLUT},
	ColorModeA8:       {Bits: 8, Space: ColorSpaceAlpha},
	ColorModeA4:       {Bits: 4, Space: ColorSpaceAlpha},
}

// Info returns the ColorModeInfo for this mode.
func (m ColorMode) Info() ColorModeInfo {
	if m >= colorModeCount {
		return ColorModeInfo{}
	}
	return colorModeTable[m]
}

// Bits returns the number of bits per pixel.
func (m ColorMode) Bits() int { return m.Info().Bits }

// Space returns the color space of the mode.
func (m ColorMode) Space() ColorSpace { return m.Info().Space }

// IsValid reports whether m is a known mode.
func (m ColorMode) IsValid() bool { return m < colorModeCount }

// IsRGB reports whether m stores RGB samples, with or without alpha.
func (m ColorMode) IsRGB() bool {
	s := m.Space()
	return m.IsValid() && (s == ColorSpaceARGB || s == ColorSpaceRGB)
}

// IsYUV reports whether m stores YUV samples.
func (m ColorMode) IsYUV() bool { return m.IsValid() && m.Space() == ColorSpaceYUV }

// PixelBytes returns the number of bytes w x h pixels occupy, rounded up.
func (m ColorMode) PixelBytes(w, h int) int {
	return (w*h*m.Bits() + 7) / 8
}

// pbyte returns the descriptor encoding of the pixel size:
// 0 = 0.5 byte, 1 = 1, 2 = 1.5, 3 = 2, 4 = 3, 5 = 4 bytes.
func (m ColorMode) pbyte() uint8 {
	switch m.Bits() {
	case 4:
		return 0
	case 8:
		return 1
	case 12:
		return 2
	case 16:
		return 3
	case 24:
		return 4
	case 32:
		return 5
	default:
		return 0
	}
}

// String returns the mode name.
func (m ColorMode) String() string {
	switch m {
	case ColorModeARGB8888:
		return "ARGB8888"
	case ColorModeRGB888:
		return "RGB888"
	case ColorModeRGB565:
		return "RGB565"
	case ColorModeYUV420:
		return "YUV420"
	case ColorModeYUV444:
		return "YUV444"
	case ColorModeYUV422:
		return "YUV422"
	case ColorModeL8:
		return "L8"
	case ColorModeL4:
		return "L4"
	case ColorModeA8:
		return "A8"
	case ColorModeA4:
		return "A4"
	default:
		return "Unknown"
	}
}

// Supported modes per engine port.
var (
	srmInModes    = modeSet(ColorModeARGB8888, ColorModeRGB888, ColorModeRGB565, ColorModeYUV420, ColorModeYUV444, ColorModeYUV422)
	srmOutModes   = modeSet(ColorModeARGB8888, ColorModeRGB888, ColorModeRGB565, ColorModeYUV420, ColorModeYUV444)
	blendBgModes  = modeSet(ColorModeARGB8888, ColorModeRGB888, ColorModeRGB565, ColorModeL8, ColorModeL4)
	blendFgModes  = modeSet(ColorModeARGB8888, ColorModeRGB888, ColorModeRGB565, ColorModeL8, ColorModeL4, ColorModeA8, ColorModeA4)
	blendOutModes = modeSet(ColorModeARGB8888, ColorModeRGB888, ColorModeRGB565)
	fillOutModes  = blendOutModes
)

type colorModeSet uint16

func modeSet(modes ...ColorMode) colorModeSet {
	var s colorModeSet
	for _, m := range modes {
		s |= 1 << m
	}
	return s
}

func (s colorModeSet) has(m ColorMode) bool {
	return m.IsValid() && s&(1<<m) != 0
}
