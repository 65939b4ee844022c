package sim

import (
	"sync"

	"github.com/gogpu/ppa"
)

// SRMState is the SRM register file.
type SRMState struct {
	RxMode     ppa.ColorMode
	RxYUVRange ppa.YUVRange
	YUVToRGB   ppa.YUVStd
	ByteSwap   bool
	RGBSwap    bool
	AlphaMode  ppa.AlphaMode
	AlphaValue uint32

	TxMode     ppa.ColorMode
	TxYUVRange ppa.YUVRange
	RGBToYUV   ppa.YUVStd

	Rotation              ppa.RotationAngle
	ScaleXInt, ScaleXFrac uint32
	ScaleYInt, ScaleYFrac uint32
	MirrorX, MirrorY      bool
}

// BlendState is the Blend register file.
type BlendState struct {
	BgMode       ppa.ColorMode
	BgByteSwap   bool
	BgRGBSwap    bool
	BgAlphaMode  ppa.AlphaMode
	BgAlphaValue uint32

	FgMode       ppa.ColorMode
	FgFixRGB     ppa.RGB
	FgByteSwap   bool
	FgRGBSwap    bool
	FgAlphaMode  ppa.AlphaMode
	FgAlphaValue uint32

	BgKeyOn    bool
	BgKey      ppa.ColorKey
	FgKeyOn    bool
	FgKey      ppa.ColorKey
	KeyDefault ppa.RGB

	TxMode ppa.ColorMode

	FillColor    ppa.ARGB
	FillW, FillH int
}

// controller implements ppa.Controller over the device register files.
type controller struct {
	dev *Device

	mu      sync.Mutex
	clockOn bool
	resets  int
	srm     srmRegs
	blend   blendRegs
}

func newController(dev *Device) *controller {
	c := &controller{dev: dev}
	c.srm.c = c
	c.blend.c = c
	return c
}

func (c *controller) EnableBusClock(on bool) {
	c.mu.Lock()
	c.clockOn = on
	c.mu.Unlock()
}

func (c *controller) ResetRegisters() {
	c.mu.Lock()
	c.resets++
	c.srm.s = SRMState{}
	c.blend.s = BlendState{}
	c.mu.Unlock()
}

func (c *controller) SRM() ppa.SRMRegs     { return &c.srm }
func (c *controller) Blend() ppa.BlendRegs { return &c.blend }

func (c *controller) clock() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clockOn
}

type srmRegs struct {
	c *controller
	s SRMState
}

func (r *srmRegs) set(fn func(s *SRMState)) {
	r.c.mu.Lock()
	fn(&r.s)
	r.c.mu.Unlock()
}

func (r *srmRegs) Reset() { r.set(func(s *SRMState) { *s = SRMState{} }) }

func (r *srmRegs) SetRxColorMode(m ppa.ColorMode) { r.set(func(s *SRMState) { s.RxMode = m }) }

func (r *srmRegs) SetRxYUVRange(v ppa.YUVRange) { r.set(func(s *SRMState) { s.RxYUVRange = v }) }

func (r *srmRegs) SetYUVToRGBStd(v ppa.YUVStd) { r.set(func(s *SRMState) { s.YUVToRGB = v }) }

func (r *srmRegs) EnableRxByteSwap(on bool) { r.set(func(s *SRMState) { s.ByteSwap = on }) }

func (r *srmRegs) EnableRxRGBSwap(on bool) { r.set(func(s *SRMState) { s.RGBSwap = on }) }

func (r *srmRegs) ConfigureRxAlpha(mode ppa.AlphaMode, value uint32) {
	r.set(func(s *SRMState) { s.AlphaMode, s.AlphaValue = mode, value })
}

func (r *srmRegs) SetTxColorMode(m ppa.ColorMode) { r.set(func(s *SRMState) { s.TxMode = m }) }

func (r *srmRegs) SetTxYUVRange(v ppa.YUVRange) { r.set(func(s *SRMState) { s.TxYUVRange = v }) }

func (r *srmRegs) SetRGBToYUVStd(v ppa.YUVStd) { r.set(func(s *SRMState) { s.RGBToYUV = v }) }

func (r *srmRegs) SetRotation(a ppa.RotationAngle) { r.set(func(s *SRMState) { s.Rotation = a }) }

func (r *srmRegs) SetScalingX(i, f uint32) {
	r.set(func(s *SRMState) { s.ScaleXInt, s.ScaleXFrac = i, f })
}

func (r *srmRegs) SetScalingY(i, f uint32) {
	r.set(func(s *SRMState) { s.ScaleYInt, s.ScaleYFrac = i, f })
}

func (r *srmRegs) EnableMirrorX(on bool) { r.set(func(s *SRMState) { s.MirrorX = on }) }

func (r *srmRegs) EnableMirrorY(on bool) { r.set(func(s *SRMState) { s.MirrorY = on }) }

// Start latches the register file and starts the engine.
func (r *srmRegs) Start() {
	r.c.mu.Lock()
	s := r.s
	r.c.mu.Unlock()
	r.c.dev.startSRM(s)
}

type blendRegs struct {
	c *controller
	s BlendState
}

func (r *blendRegs) set(fn func(s *BlendState)) {
	r.c.mu.Lock()
	fn(&r.s)
	r.c.mu.Unlock()
}

func (r *blendRegs) Reset() { r.set(func(s *BlendState) { *s = BlendState{} }) }

func (r *blendRegs) SetRxBgColorMode(m ppa.ColorMode) { r.set(func(s *BlendState) { s.BgMode = m }) }

func (r *blendRegs) EnableRxBgByteSwap(on bool) { r.set(func(s *BlendState) { s.BgByteSwap = on }) }

func (r *blendRegs) EnableRxBgRGBSwap(on bool) { r.set(func(s *BlendState) { s.BgRGBSwap = on }) }

func (r *blendRegs) ConfigureRxBgAlpha(mode ppa.AlphaMode, value uint32) {
	r.set(func(s *BlendState) { s.BgAlphaMode, s.BgAlphaValue = mode, value })
}

func (r *blendRegs) SetRxFgColorMode(m ppa.ColorMode) { r.set(func(s *BlendState) { s.FgMode = m }) }

func (r *blendRegs) SetRxFgFixRGB(c ppa.RGB) { r.set(func(s *BlendState) { s.FgFixRGB = c }) }

func (r *blendRegs) EnableRxFgByteSwap(on bool) { r.set(func(s *BlendState) { s.FgByteSwap = on }) }

func (r *blendRegs) EnableRxFgRGBSwap(on bool) { r.set(func(s *BlendState) { s.FgRGBSwap = on }) }

func (r *blendRegs) ConfigureRxFgAlpha(mode ppa.AlphaMode, value uint32) {
	r.set(func(s *BlendState) { s.FgAlphaMode, s.FgAlphaValue = mode, value })
}

func (r *blendRegs) ConfigureBgColorKey(on bool, k ppa.ColorKey) {
	r.set(func(s *BlendState) { s.BgKeyOn, s.BgKey = on, k })
}

func (r *blendRegs) ConfigureFgColorKey(on bool, k ppa.ColorKey) {
	r.set(func(s *BlendState) { s.FgKeyOn, s.FgKey = on, k })
}

func (r *blendRegs) SetColorKeyDefault(c ppa.RGB) { r.set(func(s *BlendState) { s.KeyDefault = c }) }

func (r *blendRegs) SetTxColorMode(m ppa.ColorMode) { r.set(func(s *BlendState) { s.TxMode = m }) }

func (r *blendRegs) ConfigureFillBlock(c ppa.ARGB, w, h int) {
	r.set(func(s *BlendState) { s.FillColor, s.FillW, s.FillH = c, w, h })
}

// Start latches the register file and starts a blend or a fill.
func (r *blendRegs) Start(mode ppa.BlendMode) {
	r.c.mu.Lock()
	s := r.s
	r.c.mu.Unlock()
	r.c.dev.startBlend(s, mode)
}
