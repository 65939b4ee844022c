package ppa

import (
	"fmt"

	"github.com/gogpu/ppa/internal/pic"
)

// SpanOf returns the byte range [off, off+n) that the w x h block at (x, y)
// of a picW x picH picture with the given bits per pixel touches.
func SpanOf(picW, picH, bits, x, y, w, h int) (off, n int) {
	return pic.Geometry{Width: picW, Height: picH, Bits: bits}.Span(x, y, w, h)
}

// WritebackBlock writes the cached bytes of the input block back to memory
// so the DMA reads what the CPU wrote.
func WritebackBlock(s MemorySyncer, in *InPicture) error {
	off, n := SpanOf(in.PicW, in.PicH, in.Mode.Bits(), in.OffsetX, in.OffsetY, in.BlockW, in.BlockH)
	if n == 0 {
		return nil
	}
	if off+n > len(in.Buffer) {
		return fmt.Errorf("ppa: input block span [%d,%d) exceeds buffer of %d bytes: %w",
			off, off+n, len(in.Buffer), ErrInvalidArgument)
	}
	return s.Sync(in.Buffer[off:off+n], SyncDirC2M|SyncUnaligned)
}

// InvalidateBlock drops cached lines covering the w x h output block so the
// CPU reads what the DMA wrote. The span is widened to whole cache lines
// and clamped to the buffer, which must start on a cache line.
func InvalidateBlock(s MemorySyncer, out *OutPicture, w, h int) error {
	off, n := SpanOf(out.PicW, out.PicH, out.Mode.Bits(), out.OffsetX, out.OffsetY, w, h)
	if n == 0 {
		return nil
	}
	line := s.CacheLineSize()
	start := alignDown(off, line)
	end := min(alignUp(off+n, line), len(out.Buffer))
	if end <= start {
		return fmt.Errorf("ppa: output block span [%d,%d) exceeds buffer of %d bytes: %w",
			off, off+n, len(out.Buffer), ErrInvalidArgument)
	}
	flags := SyncDirM2C
	if line > 0 && (end-start)%line != 0 {
		flags |= SyncUnaligned
	}
	return s.Sync(out.Buffer[start:end], flags)
}

func alignDown(v, a int) int {
	if a <= 1 {
		return v
	}
	return v / a * a
}

func alignUp(v, a int) int {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}

func isAligned(v, a int) bool {
	return a <= 1 || v%a == 0
}
