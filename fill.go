package ppa

import "fmt"

type fillParams struct {
	cfg     FillConfig
	outAddr uint64
}

func (v validator) fill(cfg *FillConfig, p *fillParams) error {
	outAddr, err := v.output(&cfg.Out, cfg.BlockW, cfg.BlockH, fillOutModes)
	if err != nil {
		return err
	}
	*p = fillParams{cfg: *cfg, outAddr: outAddr}
	return nil
}

// Fill paints a cfg.BlockW x cfg.BlockH block of cfg.Out with cfg.Color.
// Fills run on the blend engine and queue behind blends.
func (c *Client) Fill(cfg *FillConfig, tc TransConfig) error {
	if cfg == nil {
		return fmt.Errorf("ppa: nil fill config: %w", ErrInvalidArgument)
	}
	if err := c.checkOperation(OperationFill); err != nil {
		return err
	}
	if err := checkTransConfig(tc); err != nil {
		return err
	}
	var p fillParams
	if err := c.reg.validator().fill(cfg, &p); err != nil {
		return err
	}
	if err := InvalidateBlock(c.reg.plat.Sync, &p.cfg.Out, p.cfg.BlockW, p.cfg.BlockH); err != nil {
		return err
	}

	t, err := c.takeTransaction()
	if err != nil {
		return err
	}
	*t.params.(*fillParams) = p
	return c.run(t, tc)
}

func (p *fillParams) program(e *engine, t *transaction, chans []Channel) bool {
	var scratch [1]Channel
	tx, rx := splitChannels(chans, scratch[:0])
	if len(tx) != 0 || rx == nil {
		panic(fmt.Sprintf("ppa: fill picked %d channels, want 1 rx", len(chans)))
	}
	cfg := &p.cfg

	rxAddr := e.writeDescriptor(2, outDescriptor(&cfg.Out, cfg.BlockW, cfg.BlockH, p.outAddr))

	rx.Connect(TriggerBlendRX)
	rx.SetTransferAbility(ppaTransferAbility)
	rx.RegisterRxEOF(t.eof)

	regs := e.ctrl.Blend()
	regs.Reset()

	rx.SetDescriptorAddr(rxAddr)
	rx.Start()

	regs.SetTxColorMode(cfg.Out.Mode)
	regs.ConfigureFillBlock(cfg.Color, cfg.BlockW, cfg.BlockH)
	regs.Start(BlendModeFill)
	return false
}
