package sim

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/internal/blend"
	"github.com/gogpu/ppa/internal/pic"
)

// execute performs o on mapped memory.
func (d *Device) execute(o *op) error {
	switch {
	case o.kind == ppa.EngineSRM:
		return d.execSRM(o)
	case o.mode == ppa.BlendModeFill:
		return d.execFill(o)
	default:
		return d.execBlend(o)
	}
}

// picture decodes the descriptor a channel points at and maps its picture.
func (d *Device) picture(ch snapshot, mode ppa.ColorMode) (ppa.Descriptor, *surface, error) {
	raw, err := d.mem.Resolve(ch.descAddr, ppa.DescriptorSize)
	if err != nil {
		return ppa.Descriptor{}, nil, fmt.Errorf("descriptor: %w", err)
	}
	desc, err := ppa.DecodeDescriptor(raw)
	if err != nil {
		return ppa.Descriptor{}, nil, err
	}
	if desc.Owner != ppa.OwnerDMA {
		return desc, nil, fmt.Errorf("descriptor at %#x owned by %v", ch.descAddr, desc.Owner)
	}
	w, h := int(desc.HALength), int(desc.VASize)
	g := pic.Geometry{Width: w, Height: h, Bits: mode.Bits()}
	buf, err := d.mem.Resolve(desc.Buffer, g.ByteSize())
	if err != nil {
		return desc, nil, fmt.Errorf("picture: %w", err)
	}
	s, err := newSurface(buf, w, h, mode)
	return desc, s, err
}

// txStorage returns the memory format of a TX channel's picture when the
// engine port reads engineMode.
func txStorage(csc ppa.CSC, engineMode ppa.ColorMode) ppa.ColorMode {
	switch csc {
	case ppa.CSCTxYUV444ToRGB888BT601, ppa.CSCTxYUV444ToRGB888BT709:
		return ppa.ColorModeYUV444
	case ppa.CSCTxYUV422ToRGB888BT601, ppa.CSCTxYUV422ToRGB888BT709:
		return ppa.ColorModeYUV422
	default:
		return engineMode
	}
}

func rxStorage(csc ppa.CSC, engineMode ppa.ColorMode) ppa.ColorMode {
	if csc == ppa.CSCRxYUV420ToYUV444 {
		return ppa.ColorModeYUV444
	}
	return engineMode
}

// scaled returns n scaled by the fixed-point factor i + f/16.
func scaled(n int, i, f uint32) int {
	return n * int(i*16+f) / 16
}

// rotateSource maps output pixel (x, y) of a rotation of a w x h image to
// its source pixel. Angles are counterclockwise.
func rotateSource(x, y, w, h int, a ppa.RotationAngle) (int, int) {
	switch a {
	case ppa.Rotate90:
		return w - 1 - y, x
	case ppa.Rotate180:
		return w - 1 - x, h - 1 - y
	case ppa.Rotate270:
		return y, h - 1 - x
	default:
		return x, y
	}
}

func (d *Device) execSRM(o *op) error {
	s := &o.srm
	inDesc, in, err := d.picture(o.tx[0], txStorage(o.tx[0].csc, s.RxMode))
	if err != nil {
		return fmt.Errorf("srm in: %w", err)
	}
	outDesc, out, err := d.picture(o.rx, rxStorage(o.rx.csc, s.TxMode))
	if err != nil {
		return fmt.Errorf("srm out: %w", err)
	}
	if in.mode == ppa.ColorModeYUV420 || out.mode == ppa.ColorModeYUV420 {
		ppa.Logger().Debug("sim: YUV420 block skipped", "in", in.mode, "out", out.mode)
		return nil
	}
	in.byteSwap, in.rgbSwap = s.ByteSwap, s.RGBSwap

	bx, by := int(inDesc.X), int(inDesc.Y)
	bw, bh := int(inDesc.HBLength), int(inDesc.VBSize)
	if !in.contains(bx, by, bw, bh) {
		return fmt.Errorf("srm in: %dx%d block at (%d,%d) outside picture", bw, bh, bx, by)
	}

	src := image.NewNRGBA(image.Rect(0, 0, bw, bh))
	for y := range bh {
		for x := range bw {
			p := applyAlpha(in.at(bx+x, by+y), s.AlphaMode, s.AlphaValue)
			src.SetNRGBA(x, y, color.NRGBA{R: p.R, G: p.G, B: p.B, A: p.A})
		}
	}

	sw, sh := scaled(bw, s.ScaleXInt, s.ScaleXFrac), scaled(bh, s.ScaleYInt, s.ScaleYFrac)
	if sw == 0 || sh == 0 {
		return fmt.Errorf("srm: %dx%d block scales to nothing", bw, bh)
	}
	dst := src
	if sw != bw || sh != bh {
		dst = image.NewNRGBA(image.Rect(0, 0, sw, sh))
		var scaler draw.Interpolator = draw.NearestNeighbor
		if sw < bw || sh < bh {
			scaler = draw.ApproxBiLinear
		}
		scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	ow, oh := sw, sh
	if s.Rotation == ppa.Rotate90 || s.Rotation == ppa.Rotate270 {
		ow, oh = sh, sw
	}
	ox, oy := int(outDesc.X), int(outDesc.Y)
	if !out.contains(ox, oy, ow, oh) {
		return fmt.Errorf("srm out: %dx%d block at (%d,%d) outside picture", ow, oh, ox, oy)
	}
	for y := range oh {
		for x := range ow {
			mx, my := x, y
			if s.MirrorX {
				mx = ow - 1 - x
			}
			if s.MirrorY {
				my = oh - 1 - y
			}
			sx, sy := rotateSource(mx, my, sw, sh, s.Rotation)
			c := dst.NRGBAAt(sx, sy)
			out.set(ox+x, oy+y, blend.Pixel{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return nil
}

func (d *Device) execBlend(o *op) error {
	s := &o.blend
	bgDesc, bg, err := d.picture(o.tx[0], s.BgMode)
	if err != nil {
		return fmt.Errorf("blend bg: %w", err)
	}
	fgDesc, fg, err := d.picture(o.tx[1], s.FgMode)
	if err != nil {
		return fmt.Errorf("blend fg: %w", err)
	}
	outDesc, out, err := d.picture(o.rx, s.TxMode)
	if err != nil {
		return fmt.Errorf("blend out: %w", err)
	}
	bg.byteSwap, bg.rgbSwap = s.BgByteSwap, s.BgRGBSwap
	fg.byteSwap, fg.rgbSwap, fg.fix = s.FgByteSwap, s.FgRGBSwap, s.FgFixRGB

	w, h := int(bgDesc.HBLength), int(bgDesc.VBSize)
	bx, by := int(bgDesc.X), int(bgDesc.Y)
	fx, fy := int(fgDesc.X), int(fgDesc.Y)
	ox, oy := int(outDesc.X), int(outDesc.Y)
	switch {
	case int(fgDesc.HBLength) != w || int(fgDesc.VBSize) != h:
		return fmt.Errorf("blend: fg block %dx%d differs from bg %dx%d", fgDesc.HBLength, fgDesc.VBSize, w, h)
	case !bg.contains(bx, by, w, h), !fg.contains(fx, fy, w, h), !out.contains(ox, oy, w, h):
		return fmt.Errorf("blend: %dx%d block outside a picture", w, h)
	}

	keyDefault := blend.Pixel{R: s.KeyDefault.R, G: s.KeyDefault.G, B: s.KeyDefault.B, A: 0xFF}
	for y := range h {
		for x := range w {
			b := applyAlpha(bg.at(bx+x, by+y), s.BgAlphaMode, s.BgAlphaValue)
			f := applyAlpha(fg.at(fx+x, fy+y), s.FgAlphaMode, s.FgAlphaValue)
			bgKeyed := s.BgKeyOn && inKey(b, s.BgKey)
			fgKeyed := s.FgKeyOn && inKey(f, s.FgKey)

			var r blend.Pixel
			switch {
			case bgKeyed && fgKeyed:
				r = keyDefault
			case fgKeyed:
				r = b
			case bgKeyed:
				r = f
			default:
				r = blend.Over(f, b)
			}
			out.set(ox+x, oy+y, r)
		}
	}
	return nil
}

func (d *Device) execFill(o *op) error {
	s := &o.blend
	outDesc, out, err := d.picture(o.rx, s.TxMode)
	if err != nil {
		return fmt.Errorf("fill out: %w", err)
	}
	w, h := s.FillW, s.FillH
	ox, oy := int(outDesc.X), int(outDesc.Y)
	if !out.contains(ox, oy, w, h) {
		return fmt.Errorf("fill: %dx%d block at (%d,%d) outside picture", w, h, ox, oy)
	}
	c := blend.Pixel{R: s.FillColor.R, G: s.FillColor.G, B: s.FillColor.B, A: s.FillColor.A}
	for y := range h {
		for x := range w {
			out.set(ox+x, oy+y, c)
		}
	}
	return nil
}
