package ppa

import (
	"fmt"

	"github.com/gogpu/ppa/internal/pic"
)

// Scale limits of the SRM engine: 8 integer and 4 fractional bits.
const (
	scaleIntMax  = 0xFF
	scaleFracMax = 0xF

	minScale = 1.0 / scaleFracMax
	maxScale = scaleIntMax + 1
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("ppa: "+format+": %w", append(args, ErrInvalidArgument)...)
}

func checkDim(name string, v int) error {
	if v < 1 || v > maxField {
		return invalidf("%s %d outside [1, %d]", name, v, maxField)
	}
	return nil
}

// validator checks operation parameters against the platform's memory
// rules. It never mutates state.
type validator struct {
	mem  Allocator
	line int
}

func (r *Registry) validator() validator {
	return validator{mem: r.plat.Memory, line: r.plat.Sync.CacheLineSize()}
}

// picture checks the geometry shared by input and output pictures.
func (v validator) picture(name string, buf []byte, picW, picH, x, y, w, h int, m ColorMode, modes colorModeSet) error {
	if !modes.has(m) {
		return invalidf("%s: color mode %v not supported", name, m)
	}
	if err := checkDim(name+" picture width", picW); err != nil {
		return err
	}
	if err := checkDim(name+" picture height", picH); err != nil {
		return err
	}
	if err := checkDim(name+" block width", w); err != nil {
		return err
	}
	if err := checkDim(name+" block height", h); err != nil {
		return err
	}
	g := pic.Geometry{Width: picW, Height: picH, Bits: m.Bits()}
	if !g.Contains(x, y, w, h) {
		return invalidf("%s: %dx%d block at (%d,%d) outside %dx%d picture", name, w, h, x, y, picW, picH)
	}
	if need := g.ByteSize(); len(buf) < need {
		return invalidf("%s: buffer of %d bytes, picture needs %d", name, len(buf), need)
	}
	if m.Info().ChromaSubsampled && (picW%2 != 0 || picH%2 != 0 || x%2 != 0 || y%2 != 0) {
		return invalidf("%s: %v needs even picture size and offsets", name, m)
	}
	if m.Info().ChromaSubsampled && (w%2 != 0 || h%2 != 0) {
		return invalidf("%s: %v needs even block size, got %dx%d", name, m, w, h)
	}
	if m.Bits() == 4 && (w%2 != 0 || x%2 != 0) {
		return invalidf("%s: %v needs even block width and x offset", name, m)
	}
	return nil
}

// input checks an input picture and returns its bus address.
func (v validator) input(name string, in *InPicture, modes colorModeSet) (uint64, error) {
	if err := v.picture(name, in.Buffer, in.PicW, in.PicH, in.OffsetX, in.OffsetY, in.BlockW, in.BlockH, in.Mode, modes); err != nil {
		return 0, err
	}
	addr, ok := v.mem.PhysAddr(in.Buffer)
	if !ok {
		return 0, invalidf("%s: buffer not reachable by DMA", name)
	}
	return addr, nil
}

// output checks an output picture receiving a w x h block and returns its
// bus address. The buffer must be DMA-capable and cache-line aligned in
// address and length so invalidation cannot drop unrelated data.
func (v validator) output(out *OutPicture, w, h int, modes colorModeSet) (uint64, error) {
	if err := v.picture("out", out.Buffer, out.PicW, out.PicH, out.OffsetX, out.OffsetY, w, h, out.Mode, modes); err != nil {
		return 0, err
	}
	if !v.mem.IsDMACapable(out.Buffer) {
		return 0, invalidf("out: buffer not DMA-capable")
	}
	addr, ok := v.mem.PhysAddr(out.Buffer)
	if !ok {
		return 0, invalidf("out: buffer not reachable by DMA")
	}
	if line := uint64(max(v.line, 1)); addr%line != 0 || !isAligned(len(out.Buffer), v.line) {
		return 0, invalidf("out: buffer at %#x of %d bytes not aligned to %d", addr, len(out.Buffer), v.line)
	}
	return addr, nil
}

func checkAlpha(name string, a AlphaConfig) error {
	switch a.Mode {
	case AlphaNoChange, AlphaFixValue, AlphaInvert:
		return nil
	case AlphaScale:
		if !(a.ScaleRatio > 0 && a.ScaleRatio < 1) {
			return invalidf("%s alpha scale ratio %v outside (0, 1)", name, a.ScaleRatio)
		}
		return nil
	default:
		return invalidf("%s alpha mode %d", name, a.Mode)
	}
}

// checkSwap enforces the color modes byte and RGB swapping apply to.
func checkSwap(name string, m ColorMode, byteSwap, rgbSwap bool) error {
	if byteSwap && !m.Info().ByteSwap {
		return invalidf("%s: byte swap not supported for %v", name, m)
	}
	if rgbSwap && !m.IsRGB() {
		return invalidf("%s: RGB swap not supported for %v", name, m)
	}
	return nil
}

// checkScale validates one scale factor and returns its register encoding.
func checkScale(name string, s float64) (intPart, fracPart uint32, err error) {
	if !(s >= minScale && s < maxScale) {
		return 0, 0, invalidf("%s %v outside [1/%d, %d)", name, s, scaleFracMax, maxScale)
	}
	return uint32(s), uint32(s*(scaleFracMax+1)) & scaleFracMax, nil
}
