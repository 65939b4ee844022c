package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/backend"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var flags Config
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fill, scale-rotate-mirror and blend pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			f := cmd.Flags()
			if f.Changed("backend") {
				cfg.Backend = flags.Backend
			}
			if f.Changed("rotation") {
				cfg.Rotation = flags.Rotation
			}
			if f.Changed("scale") {
				cfg.Scale = flags.Scale
			}
			if f.Changed("mirror-x") {
				cfg.MirrorX = flags.MirrorX
			}
			if f.Changed("mirror-y") {
				cfg.MirrorY = flags.MirrorY
			}
			if f.Changed("iterations") {
				cfg.Iterations = flags.Iterations
			}
			if f.Changed("non-blocking") {
				cfg.NonBlocking = flags.NonBlocking
			}
			if f.Changed("output") {
				cfg.Output = flags.Output
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			core, err := newLogCore(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			log := installLogger(core)
			defer ppa.SetLogger(nil)
			defer func() { _ = log.Sync() }()

			return runPipeline(cfg, log, newPrinter(cmd.OutOrStdout()))
		},
	}
	cmd.Flags().StringVar(&flags.Backend, "backend", "", "platform backend")
	cmd.Flags().IntVar(&flags.Rotation, "rotation", 0, "counterclockwise rotation in degrees")
	cmd.Flags().Float64Var(&flags.Scale, "scale", 0, "scale factor for both axes")
	cmd.Flags().BoolVar(&flags.MirrorX, "mirror-x", false, "mirror horizontally")
	cmd.Flags().BoolVar(&flags.MirrorY, "mirror-y", false, "mirror vertically")
	cmd.Flags().IntVar(&flags.Iterations, "iterations", 0, "number of scale-rotate-mirror operations")
	cmd.Flags().BoolVar(&flags.NonBlocking, "non-blocking", false, "submit without waiting")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "PNG output path")
	return cmd
}

// scaledDim mirrors how the SRM engine sizes its output: the factor is
// truncated to 1/16 steps.
func scaledDim(n int, scale float64) int {
	return n * int(scale*16) / 16
}

// pipeline holds the resources of one demo run.
type pipeline struct {
	cfg Config
	log *zap.Logger
	b   backend.PlatformBackend
	reg *ppa.Registry

	mems    []ppa.Mem
	clients []*ppa.Client

	// sem bounds non-blocking SRM submissions to the client's pool.
	sem       chan struct{}
	completed atomic.Int64
	errMu     sync.Mutex
	firstErr  error
}

func runPipeline(cfg Config, log *zap.Logger, out *printer) (err error) {
	start := time.Now()
	b, err := backend.InitNamed(cfg.Backend)
	if err != nil {
		return err
	}
	defer b.Close()

	reg, err := ppa.NewRegistry(b.Platform())
	if err != nil {
		return err
	}
	p := &pipeline{cfg: cfg, log: log, b: b, reg: reg, sem: make(chan struct{}, cfg.MaxPending)}
	defer func() {
		err = errors.Join(err, p.close())
	}()

	out.header("ppademo on the %s backend", b.Name())

	rot := ppa.RotationAngle(cfg.Rotation / 90)
	sw, sh := scaledDim(cfg.Width, cfg.Scale), scaledDim(cfg.Height, cfg.Scale)
	if sw == 0 || sh == 0 {
		return fmt.Errorf("scale %v shrinks %dx%d to nothing", cfg.Scale, cfg.Width, cfg.Height)
	}
	ow, oh := sw, sh
	if rot == ppa.Rotate90 || rot == ppa.Rotate270 {
		ow, oh = sh, sw
	}

	src, err := p.alloc(cfg.Width * cfg.Height * 4)
	if err != nil {
		return err
	}
	gradient(src, cfg.Width, cfg.Height)
	canvas, err := p.alloc(ow * oh * 4)
	if err != nil {
		return err
	}
	layer, err := p.alloc(ow * oh * 4)
	if err != nil {
		return err
	}
	result, err := p.alloc(ow * oh * 4)
	if err != nil {
		return err
	}

	fill, err := p.register(ppa.OperationFill, 1, nil)
	if err != nil {
		return err
	}
	srm, err := p.register(ppa.OperationSRM, cfg.MaxPending, p.onSRMDone)
	if err != nil {
		return err
	}
	blend, err := p.register(ppa.OperationBlend, 1, nil)
	if err != nil {
		return err
	}

	picture := func(buf []byte) ppa.OutPicture {
		return ppa.OutPicture{Buffer: buf, PicW: ow, PicH: oh, Mode: ppa.ColorModeARGB8888}
	}
	block := func(buf []byte, w, h int) ppa.InPicture {
		return ppa.InPicture{Buffer: buf, PicW: w, PicH: h, BlockW: w, BlockH: h, Mode: ppa.ColorModeARGB8888}
	}

	if err := fill.Fill(&ppa.FillConfig{
		Out:    picture(canvas),
		BlockW: ow,
		BlockH: oh,
		Color:  ppa.ARGB{A: 0xFF, R: 0x20, G: 0x20, B: 0x30},
	}, ppa.TransConfig{}); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	out.success("filled %dx%d canvas", ow, oh)

	srmCfg := &ppa.SRMConfig{
		In:       block(src, cfg.Width, cfg.Height),
		Out:      picture(layer),
		Rotation: rot,
		ScaleX:   cfg.Scale,
		ScaleY:   cfg.Scale,
		MirrorX:  cfg.MirrorX,
		MirrorY:  cfg.MirrorY,
	}
	if err := p.runSRM(srm, srmCfg); err != nil {
		return err
	}
	out.success("%d scale-rotate-mirror operations (%d° x%.4g)", p.completed.Load(), cfg.Rotation, cfg.Scale)

	if err := blend.Blend(&ppa.BlendConfig{
		Bg:      block(canvas, ow, oh),
		Fg:      block(layer, ow, oh),
		Out:     picture(result),
		FgAlpha: ppa.AlphaConfig{Mode: ppa.AlphaFixValue, Value: cfg.Alpha},
	}, ppa.TransConfig{}); err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	out.success("blended layer at alpha %d", cfg.Alpha)

	if err := writePNG(cfg.Output, result, ow, oh); err != nil {
		return err
	}
	out.success("wrote %s", cfg.Output)

	if sb, ok := b.(*backend.SimBackend); ok {
		for _, kind := range []ppa.EngineKind{ppa.EngineSRM, ppa.EngineBlend} {
			st := sb.Device().EngineStats(kind)
			out.detail("%v engine: %d started, %d completed", kind, st.Started, st.Completed)
		}
	}
	out.detail("done in %v", time.Since(start).Round(time.Microsecond))
	return nil
}

func (p *pipeline) alloc(n int) ([]byte, error) {
	m, err := p.b.AllocBuffer(n)
	if err != nil {
		return nil, fmt.Errorf("alloc %d bytes: %w", n, err)
	}
	p.mems = append(p.mems, m)
	return m.Buf(), nil
}

func (p *pipeline) register(op ppa.Operation, maxPending int, cb ppa.Callback) (*ppa.Client, error) {
	c, err := p.reg.RegisterClient(ppa.ClientConfig{Operation: op, MaxPendingTransactions: maxPending, Callback: cb})
	if err != nil {
		return nil, fmt.Errorf("register %v client: %w", op, err)
	}
	p.log.Debug("client registered", zap.Stringer("op", op), zap.Stringer("client", c.ID()))
	p.clients = append(p.clients, c)
	return c, nil
}

// onSRMDone runs in interrupt context.
func (p *pipeline) onSRMDone(_ *ppa.Client, ev *ppa.Event, userData any) bool {
	if ev.Err != nil {
		p.errMu.Lock()
		if p.firstErr == nil {
			p.firstErr = ev.Err
		}
		p.errMu.Unlock()
	} else {
		p.completed.Add(1)
	}
	if nb, _ := userData.(bool); nb {
		<-p.sem
	}
	return false
}

func (p *pipeline) runSRM(c *ppa.Client, cfg *ppa.SRMConfig) error {
	tc := ppa.TransConfig{Mode: ppa.Blocking}
	if p.cfg.NonBlocking {
		tc = ppa.TransConfig{Mode: ppa.NonBlocking, UserData: true}
	}
	for i := range p.cfg.Iterations {
		if tc.Mode == ppa.NonBlocking {
			p.sem <- struct{}{}
		}
		if err := c.ScaleRotateMirror(cfg, tc); err != nil {
			if tc.Mode == ppa.NonBlocking {
				<-p.sem
			}
			return fmt.Errorf("srm %d: %w", i, err)
		}
	}
	// Wait for every non-blocking submission to complete.
	for range cap(p.sem) {
		p.sem <- struct{}{}
	}
	for range cap(p.sem) {
		<-p.sem
	}

	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.firstErr != nil {
		return fmt.Errorf("srm: %w", p.firstErr)
	}
	return nil
}

func (p *pipeline) close() error {
	var errs []error
	for _, c := range p.clients {
		if err := c.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.reg.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, m := range p.mems {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// gradient paints a w x h ARGB8888 picture with red rising left to right
// and green rising top to bottom.
func gradient(buf []byte, w, h int) {
	for y := range h {
		for x := range w {
			o := (y*w + x) * 4
			buf[o] = 0x80
			buf[o+1] = byte(y * 255 / max(h-1, 1))
			buf[o+2] = byte(x * 255 / max(w-1, 1))
			buf[o+3] = 0xFF
		}
	}
}

func writePNG(path string, buf []byte, w, h int) (err error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			o := (y*w + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{R: buf[o+2], G: buf[o+1], B: buf[o], A: buf[o+3]})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
