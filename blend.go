package ppa

import "fmt"

type blendParams struct {
	cfg                     BlendConfig
	bgAddr, fgAddr, outAddr uint64
	bgKey, fgKey            ColorKey
	bgKeyOn, fgKeyOn        bool
}

func (v validator) blend(cfg *BlendConfig, p *blendParams) error {
	if cfg.Bg.BlockW != cfg.Fg.BlockW || cfg.Bg.BlockH != cfg.Fg.BlockH {
		return invalidf("bg block %dx%d differs from fg block %dx%d",
			cfg.Bg.BlockW, cfg.Bg.BlockH, cfg.Fg.BlockW, cfg.Fg.BlockH)
	}
	bgAddr, err := v.input("bg", &cfg.Bg, blendBgModes)
	if err != nil {
		return err
	}
	fgAddr, err := v.input("fg", &cfg.Fg, blendFgModes)
	if err != nil {
		return err
	}
	if err := checkSwap("bg", cfg.Bg.Mode, cfg.BgByteSwap, cfg.BgRGBSwap); err != nil {
		return err
	}
	if err := checkSwap("fg", cfg.Fg.Mode, cfg.FgByteSwap, cfg.FgRGBSwap); err != nil {
		return err
	}
	if err := checkAlpha("bg", cfg.BgAlpha); err != nil {
		return err
	}
	if err := checkAlpha("fg", cfg.FgAlpha); err != nil {
		return err
	}
	if k := cfg.BgColorKey; k != nil && !k.valid() {
		return invalidf("bg color key low %v above high %v", k.Low, k.High)
	}
	if k := cfg.FgColorKey; k != nil && !k.valid() {
		return invalidf("fg color key low %v above high %v", k.Low, k.High)
	}
	outAddr, err := v.output(&cfg.Out, cfg.Bg.BlockW, cfg.Bg.BlockH, blendOutModes)
	if err != nil {
		return err
	}

	*p = blendParams{
		cfg:     *cfg,
		bgAddr:  bgAddr,
		fgAddr:  fgAddr,
		outAddr: outAddr,
	}
	// Keys are copied so the queued transaction does not alias the
	// caller's ranges.
	if k := cfg.BgColorKey; k != nil {
		p.bgKey, p.bgKeyOn = *k, true
	}
	if k := cfg.FgColorKey; k != nil {
		p.fgKey, p.fgKeyOn = *k, true
	}
	p.cfg.BgColorKey, p.cfg.FgColorKey = nil, nil
	return nil
}

// Blend composes the foreground block over the background block and writes
// the result to cfg.Out. A8 and A4 foregrounds supply alpha only; their
// color is cfg.FgFixRGB.
func (c *Client) Blend(cfg *BlendConfig, tc TransConfig) error {
	if cfg == nil {
		return fmt.Errorf("ppa: nil blend config: %w", ErrInvalidArgument)
	}
	if err := c.checkOperation(OperationBlend); err != nil {
		return err
	}
	if err := checkTransConfig(tc); err != nil {
		return err
	}
	var p blendParams
	if err := c.reg.validator().blend(cfg, &p); err != nil {
		return err
	}

	s := c.reg.plat.Sync
	if err := WritebackBlock(s, &p.cfg.Bg); err != nil {
		return err
	}
	if err := WritebackBlock(s, &p.cfg.Fg); err != nil {
		return err
	}
	if err := InvalidateBlock(s, &p.cfg.Out, p.cfg.Bg.BlockW, p.cfg.Bg.BlockH); err != nil {
		return err
	}

	t, err := c.takeTransaction()
	if err != nil {
		return err
	}
	*t.params.(*blendParams) = p
	return c.run(t, tc)
}

func (p *blendParams) program(e *engine, t *transaction, chans []Channel) bool {
	var scratch [2]Channel
	tx, rx := splitChannels(chans, scratch[:0])
	if len(tx) != 2 || rx == nil {
		panic(fmt.Sprintf("ppa: blend picked %d channels, want 2 tx and 1 rx", len(chans)))
	}
	bgCh, fgCh := tx[0], tx[1]
	cfg := &p.cfg

	bgAddr := e.writeDescriptor(0, inDescriptor(&cfg.Bg, p.bgAddr))
	fgAddr := e.writeDescriptor(1, inDescriptor(&cfg.Fg, p.fgAddr))
	rxAddr := e.writeDescriptor(2, outDescriptor(&cfg.Out, cfg.Bg.BlockW, cfg.Bg.BlockH, p.outAddr))

	bgCh.Connect(TriggerBlendBgTX)
	fgCh.Connect(TriggerBlendFgTX)
	rx.Connect(TriggerBlendRX)
	bgCh.SetTransferAbility(ppaTransferAbility)
	fgCh.SetTransferAbility(ppaTransferAbility)
	rx.SetTransferAbility(ppaTransferAbility)
	rx.RegisterRxEOF(t.eof)

	regs := e.ctrl.Blend()
	regs.Reset()

	bgCh.SetDescriptorAddr(bgAddr)
	fgCh.SetDescriptorAddr(fgAddr)
	rx.SetDescriptorAddr(rxAddr)
	bgCh.Start()
	fgCh.Start()
	rx.Start()

	regs.SetRxBgColorMode(cfg.Bg.Mode)
	regs.EnableRxBgByteSwap(cfg.BgByteSwap)
	regs.EnableRxBgRGBSwap(cfg.BgRGBSwap)
	regs.ConfigureRxBgAlpha(cfg.BgAlpha.Mode, cfg.BgAlpha.regValue())

	regs.SetRxFgColorMode(cfg.Fg.Mode)
	if cfg.Fg.Mode.Space() == ColorSpaceAlpha {
		regs.SetRxFgFixRGB(cfg.FgFixRGB)
	}
	regs.EnableRxFgByteSwap(cfg.FgByteSwap)
	regs.EnableRxFgRGBSwap(cfg.FgRGBSwap)
	regs.ConfigureRxFgAlpha(cfg.FgAlpha.Mode, cfg.FgAlpha.regValue())

	regs.ConfigureBgColorKey(p.bgKeyOn, p.bgKey)
	regs.ConfigureFgColorKey(p.fgKeyOn, p.fgKey)
	regs.SetColorKeyDefault(cfg.KeyDefault)

	regs.SetTxColorMode(cfg.Out.Mode)
	regs.Start(BlendModeBlend)
	return false
}
