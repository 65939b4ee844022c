package ppa

import "fmt"

// dataBurst is the 2D-DMA burst length used for every PPA channel.
const dataBurst = 128

var ppaTransferAbility = TransferAbility{DataBurst: dataBurst, DescBurst: true}

type srmParams struct {
	cfg             SRMConfig
	inAddr, outAddr uint64
	outW, outH      int

	scaleXInt, scaleXFrac uint32
	scaleYInt, scaleYFrac uint32
}

// srmOutBlock returns the size of the block the SRM engine writes for a
// w x h input, using the scale factors as the hardware resolves them.
func srmOutBlock(w, h int, xi, xf, yi, yf uint32, rot RotationAngle) (int, int) {
	ow := w * int(xi*(scaleFracMax+1)+xf) / (scaleFracMax + 1)
	oh := h * int(yi*(scaleFracMax+1)+yf) / (scaleFracMax + 1)
	if rot.swapsAxes() {
		return oh, ow
	}
	return ow, oh
}

func (v validator) srm(cfg *SRMConfig, p *srmParams) error {
	if cfg.Rotation > Rotate270 {
		return invalidf("rotation %d", cfg.Rotation)
	}
	xi, xf, err := checkScale("scale x", cfg.ScaleX)
	if err != nil {
		return err
	}
	yi, yf, err := checkScale("scale y", cfg.ScaleY)
	if err != nil {
		return err
	}
	inAddr, err := v.input("in", &cfg.In, srmInModes)
	if err != nil {
		return err
	}
	if err := checkSwap("in", cfg.In.Mode, cfg.ByteSwap, cfg.RGBSwap); err != nil {
		return err
	}
	if err := checkAlpha("in", cfg.Alpha); err != nil {
		return err
	}
	outW, outH := srmOutBlock(cfg.In.BlockW, cfg.In.BlockH, xi, xf, yi, yf, cfg.Rotation)
	outAddr, err := v.output(&cfg.Out, outW, outH, srmOutModes)
	if err != nil {
		return err
	}

	*p = srmParams{
		cfg:        *cfg,
		inAddr:     inAddr,
		outAddr:    outAddr,
		outW:       outW,
		outH:       outH,
		scaleXInt:  xi,
		scaleXFrac: xf,
		scaleYInt:  yi,
		scaleYFrac: yf,
	}
	return nil
}

// ScaleRotateMirror scales, rotates and mirrors cfg.In into cfg.Out. The
// input block is scaled first, then rotated counterclockwise, then
// mirrored.
//
// In Blocking mode the call returns once the result is in memory. In
// NonBlocking mode it returns once the work is queued; the client's
// callback reports the completion.
func (c *Client) ScaleRotateMirror(cfg *SRMConfig, tc TransConfig) error {
	if cfg == nil {
		return fmt.Errorf("ppa: nil SRM config: %w", ErrInvalidArgument)
	}
	if err := c.checkOperation(OperationSRM); err != nil {
		return err
	}
	if err := checkTransConfig(tc); err != nil {
		return err
	}
	var p srmParams
	if err := c.reg.validator().srm(cfg, &p); err != nil {
		return err
	}

	s := c.reg.plat.Sync
	if err := WritebackBlock(s, &p.cfg.In); err != nil {
		return err
	}
	if err := InvalidateBlock(s, &p.cfg.Out, p.outW, p.outH); err != nil {
		return err
	}

	t, err := c.takeTransaction()
	if err != nil {
		return err
	}
	*t.params.(*srmParams) = p
	return c.run(t, tc)
}

func yuv444CSC(std YUVStd) CSC {
	if std == YUVStdBT709 {
		return CSCTxYUV444ToRGB888BT709
	}
	return CSCTxYUV444ToRGB888BT601
}

func yuv422CSC(std YUVStd) CSC {
	if std == YUVStdBT709 {
		return CSCTxYUV422ToRGB888BT709
	}
	return CSCTxYUV422ToRGB888BT601
}

func (p *srmParams) program(e *engine, t *transaction, chans []Channel) bool {
	var scratch [1]Channel
	tx, rx := splitChannels(chans, scratch[:0])
	if len(tx) != 1 || rx == nil {
		panic(fmt.Sprintf("ppa: srm picked %d channels, want 1 tx and 1 rx", len(chans)))
	}
	in, out := &p.cfg.In, &p.cfg.Out

	txAddr := e.writeDescriptor(0, inDescriptor(in, p.inAddr))
	// The engine writes the output block size back; a zero block would
	// raise a descriptor error.
	rxAddr := e.writeDescriptor(1, outDescriptor(out, 1, 1, p.outAddr))

	tx[0].Connect(TriggerSRMTX)
	rx.Connect(TriggerSRMRX)
	tx[0].SetTransferAbility(ppaTransferAbility)
	rx.SetTransferAbility(ppaTransferAbility)

	// The engine has no YUV444 or YUV422 port; the channels convert.
	inMode := in.Mode
	switch inMode {
	case ColorModeYUV444:
		inMode = ColorModeRGB888
		tx[0].ConfigureCSC(yuv444CSC(p.cfg.YUVStd))
	case ColorModeYUV422:
		inMode = ColorModeRGB888
		tx[0].ConfigureCSC(yuv422CSC(p.cfg.YUVStd))
	}
	outMode := out.Mode
	if outMode == ColorModeYUV444 {
		outMode = ColorModeYUV420
		rx.ConfigureCSC(CSCRxYUV420ToYUV444)
	}
	rx.RegisterRxEOF(t.eof)

	regs := e.ctrl.SRM()
	regs.Reset()

	tx[0].SetDescriptorAddr(txAddr)
	rx.SetDescriptorAddr(rxAddr)
	tx[0].Start()
	rx.Start()

	regs.SetRxColorMode(inMode)
	if inMode.IsYUV() {
		regs.SetRxYUVRange(p.cfg.YUVRange)
		regs.SetYUVToRGBStd(p.cfg.YUVStd)
	}
	regs.EnableRxByteSwap(p.cfg.ByteSwap)
	regs.EnableRxRGBSwap(p.cfg.RGBSwap)
	regs.ConfigureRxAlpha(p.cfg.Alpha.Mode, p.cfg.Alpha.regValue())

	regs.SetTxColorMode(outMode)
	if outMode.IsYUV() {
		regs.SetTxYUVRange(p.cfg.YUVRange)
		regs.SetRGBToYUVStd(p.cfg.YUVStd)
	}

	regs.SetRotation(p.cfg.Rotation)
	regs.SetScalingX(p.scaleXInt, p.scaleXFrac)
	regs.SetScalingY(p.scaleYInt, p.scaleYFrac)
	regs.EnableMirrorX(p.cfg.MirrorX)
	regs.EnableMirrorY(p.cfg.MirrorY)

	regs.Start()
	return false
}
