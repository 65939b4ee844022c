package ppa_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/sim"
)

const (
	waitFor   = 5 * time.Second
	pollEvery = 2 * time.Millisecond
)

func newSim(t *testing.T, opts ...sim.Option) (*sim.Device, *ppa.Registry) {
	t.Helper()
	d := sim.New(opts...)
	t.Cleanup(d.Close)
	r, err := ppa.NewRegistry(d.Platform())
	require.NoError(t, err)
	return d, r
}

// buffer allocates a picture buffer padded to whole cache lines.
func buffer(t *testing.T, d *sim.Device, n int) []byte {
	t.Helper()
	line := max(d.Cache().CacheLineSize(), 1)
	m, err := d.AllocBuffer((n + line - 1) / line * line)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m.Buf()
}

func register(t *testing.T, r *ppa.Registry, op ppa.Operation, maxPending int, cb ppa.Callback) *ppa.Client {
	t.Helper()
	c, err := r.RegisterClient(ppa.ClientConfig{Operation: op, MaxPendingTransactions: maxPending, Callback: cb})
	require.NoError(t, err)
	return c
}

// argb returns the pixel at (x, y) of a w-wide ARGB8888 picture.
func argb(buf []byte, w, x, y int) ppa.ARGB {
	o := (y*w + x) * 4
	return ppa.ARGB{B: buf[o], G: buf[o+1], R: buf[o+2], A: buf[o+3]}
}

func setARGB(buf []byte, w, x, y int, c ppa.ARGB) {
	o := (y*w + x) * 4
	buf[o], buf[o+1], buf[o+2], buf[o+3] = c.B, c.G, c.R, c.A
}

// gradient fills a w x h ARGB8888 picture with R = x and G = y.
func gradient(buf []byte, w, h int) {
	for y := range h {
		for x := range w {
			setARGB(buf, w, x, y, ppa.ARGB{A: 0xFF, R: byte(x), G: byte(y)})
		}
	}
}

// events records completion callbacks.
type events struct {
	mu   sync.Mutex
	data []any
	errs []error
}

func (e *events) callback(_ *ppa.Client, ev *ppa.Event, userData any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = append(e.data, userData)
	e.errs = append(e.errs, ev.Err)
	return false
}

func (e *events) snapshot() ([]any, []error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]any(nil), e.data...), append([]error(nil), e.errs...)
}

func srmConfig(in, out []byte, w, h int) *ppa.SRMConfig {
	return &ppa.SRMConfig{
		In: ppa.InPicture{
			Buffer: in, PicW: w, PicH: h, BlockW: w, BlockH: h,
			Mode: ppa.ColorModeARGB8888,
		},
		Out: ppa.OutPicture{
			Buffer: out, PicW: w, PicH: h,
			Mode: ppa.ColorModeARGB8888,
		},
		ScaleX: 1,
		ScaleY: 1,
	}
}

func TestSRMRotate90(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationSRM, 1, nil)

	const w, h = 4, 2
	in, out := buffer(t, d, w*h*4), buffer(t, d, w*h*4)
	gradient(in, w, h)

	cfg := srmConfig(in, out, w, h)
	cfg.Out.PicW, cfg.Out.PicH = h, w
	cfg.Rotation = ppa.Rotate90
	require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{}))

	for y := range w {
		for x := range h {
			assert.Equal(t, ppa.ARGB{A: 0xFF, R: byte(w - 1 - y), G: byte(x)}, argb(out, h, x, y), "out (%d,%d)", x, y)
		}
	}
	require.NoError(t, c.Unregister())
}

func TestSRMScaleMirror(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationSRM, 1, nil)

	const w, h = 2, 2
	in, out := buffer(t, d, w*h*4), buffer(t, d, 4*w*h*4)
	gradient(in, w, h)

	cfg := srmConfig(in, out, w, h)
	cfg.Out.PicW, cfg.Out.PicH = 2*w, 2*h
	cfg.ScaleX, cfg.ScaleY = 2, 2
	cfg.MirrorX = true
	require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{}))

	for y := range 2 * h {
		for x := range 2 * w {
			want := ppa.ARGB{A: 0xFF, R: byte((2*w - 1 - x) / 2), G: byte(y / 2)}
			assert.Equal(t, want, argb(out, 2*w, x, y), "out (%d,%d)", x, y)
		}
	}
}

func TestSRMAlphaFix(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationSRM, 1, nil)

	in, out := buffer(t, d, 4), buffer(t, d, 4)
	setARGB(in, 1, 0, 0, ppa.ARGB{A: 0xFF, R: 9})
	cfg := srmConfig(in, out, 1, 1)
	cfg.Alpha = ppa.AlphaConfig{Mode: ppa.AlphaFixValue, Value: 0x40}
	require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{}))
	assert.Equal(t, ppa.ARGB{A: 0x40, R: 9}, argb(out, 1, 0, 0))
}

func TestBlend(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationBlend, 1, nil)

	const w = 3
	bg, fg, out := buffer(t, d, w*4), buffer(t, d, w*4), buffer(t, d, w*3)
	red, blue, green := ppa.ARGB{A: 0xFF, R: 0xFF}, ppa.ARGB{B: 0xFF}, ppa.ARGB{A: 0xFF, G: 0xFF}
	for x := range w {
		setARGB(bg, w, x, 0, red)
	}
	setARGB(fg, w, 0, 0, blue)
	setARGB(fg, w, 1, 0, green)
	setARGB(fg, w, 2, 0, ppa.ARGB{A: 0x80, B: 0xFF})

	in := func(buf []byte) ppa.InPicture {
		return ppa.InPicture{Buffer: buf, PicW: w, PicH: 1, BlockW: w, BlockH: 1, Mode: ppa.ColorModeARGB8888}
	}
	cfg := &ppa.BlendConfig{
		Bg:  in(bg),
		Fg:  in(fg),
		Out: ppa.OutPicture{Buffer: out, PicW: w, PicH: 1, Mode: ppa.ColorModeRGB888},
	}
	require.NoError(t, c.Blend(cfg, ppa.TransConfig{}))

	rgb := func(x int) ppa.RGB { return ppa.RGB{B: out[3*x], G: out[3*x+1], R: out[3*x+2]} }
	assert.Equal(t, ppa.RGB{R: 0xFF}, rgb(0), "transparent fg shows bg")
	assert.Equal(t, ppa.RGB{G: 0xFF}, rgb(1), "opaque fg covers bg")
	mixed := rgb(2)
	assert.InDelta(t, 0x7F, int(mixed.R), 2)
	assert.InDelta(t, 0x80, int(mixed.B), 2)
}

func TestBlendColorKey(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationBlend, 1, nil)

	const w = 2
	bg, fg, out := buffer(t, d, w*4), buffer(t, d, w*4), buffer(t, d, w*4)
	setARGB(bg, w, 0, 0, ppa.ARGB{A: 0xFF, R: 0x10})
	setARGB(bg, w, 1, 0, ppa.ARGB{A: 0xFF, R: 0x90})
	setARGB(fg, w, 0, 0, ppa.ARGB{A: 0xFF, G: 0x10})
	setARGB(fg, w, 1, 0, ppa.ARGB{A: 0xFF, G: 0x10})

	low := ppa.ColorKey{High: ppa.RGB{R: 0x20, G: 0x20, B: 0x20}}
	in := func(buf []byte) ppa.InPicture {
		return ppa.InPicture{Buffer: buf, PicW: w, PicH: 1, BlockW: w, BlockH: 1, Mode: ppa.ColorModeARGB8888}
	}
	cfg := &ppa.BlendConfig{
		Bg:         in(bg),
		Fg:         in(fg),
		Out:        ppa.OutPicture{Buffer: out, PicW: w, PicH: 1, Mode: ppa.ColorModeARGB8888},
		BgColorKey: &low,
		FgColorKey: &low,
		KeyDefault: ppa.RGB{B: 0x55},
	}
	require.NoError(t, c.Blend(cfg, ppa.TransConfig{}))

	assert.Equal(t, ppa.ARGB{A: 0xFF, B: 0x55}, argb(out, w, 0, 0), "both keyed")
	assert.Equal(t, ppa.ARGB{A: 0xFF, R: 0x90}, argb(out, w, 1, 0), "fg keyed")
}

func TestFill(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationFill, 1, nil)

	const w, h = 4, 4
	out := buffer(t, d, w*h*4)
	color := ppa.ARGB{A: 0xFF, R: 1, G: 2, B: 3}
	cfg := &ppa.FillConfig{
		Out:    ppa.OutPicture{Buffer: out, PicW: w, PicH: h, OffsetX: 1, OffsetY: 2, Mode: ppa.ColorModeARGB8888},
		BlockW: 2,
		BlockH: 2,
		Color:  color,
	}
	require.NoError(t, c.Fill(cfg, ppa.TransConfig{}))

	for y := range h {
		for x := range w {
			want := ppa.ARGB{}
			if x >= 1 && x < 3 && y >= 2 {
				want = color
			}
			assert.Equal(t, want, argb(out, w, x, y), "(%d,%d)", x, y)
		}
	}
}

func TestCacheMaintenance(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationSRM, 1, nil)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	inAddr, _ := d.Memory().PhysAddr(in)
	outAddr, _ := d.Memory().PhysAddr(out)
	d.Cache().Reset()
	require.NoError(t, c.ScaleRotateMirror(srmConfig(in, out, 4, 4), ppa.TransConfig{}))

	var wroteIn, invalidatedOut bool
	for _, op := range d.Cache().Ops() {
		switch {
		case op.Addr == inAddr && op.Flags&ppa.SyncDirC2M != 0:
			wroteIn = true
		case op.Addr == outAddr && op.Flags&ppa.SyncDirM2C != 0:
			invalidatedOut = true
			assert.Equal(t, 64, op.Len)
		}
	}
	assert.True(t, wroteIn, "input written back")
	assert.True(t, invalidatedOut, "output invalidated")
}

func TestFIFOOrder(t *testing.T) {
	d, r := newSim(t, sim.WithManualCompletion())
	var ev events
	c := register(t, r, ppa.OperationSRM, 4, ev.callback)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	cfg := srmConfig(in, out, 4, 4)
	for i := range 3 {
		require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{Mode: ppa.NonBlocking, UserData: i}))
	}
	assert.Equal(t, ppa.ClientStats{MaxPending: 4, Outstanding: 3, Free: 1}, c.Stats())
	assert.Equal(t, 1, d.Held(), "one operation in flight")

	for range 3 {
		require.True(t, d.Complete())
	}
	assert.False(t, d.Complete())

	data, errs := ev.snapshot()
	assert.Equal(t, []any{0, 1, 2}, data)
	assert.Equal(t, []error{nil, nil, nil}, errs)
	assert.Equal(t, ppa.ClientStats{MaxPending: 4, Outstanding: 0, Free: 4}, c.Stats())

	st := d.EngineStats(ppa.EngineSRM)
	assert.Equal(t, 3, st.Completed)
	assert.Equal(t, 1, st.MaxInFlight)
}

func TestFIFOOrderAcrossClients(t *testing.T) {
	d, r := newSim(t, sim.WithManualCompletion())
	var ev events
	blend := register(t, r, ppa.OperationBlend, 2, ev.callback)
	fill := register(t, r, ppa.OperationFill, 2, ev.callback)
	assert.Equal(t, 2, r.RefCount(ppa.EngineBlend))

	out := buffer(t, d, 64)
	fc := &ppa.FillConfig{
		Out:    ppa.OutPicture{Buffer: out, PicW: 4, PicH: 4, Mode: ppa.ColorModeARGB8888},
		BlockW: 4, BlockH: 4,
	}
	bg, fg := buffer(t, d, 64), buffer(t, d, 64)
	in := func(buf []byte) ppa.InPicture {
		return ppa.InPicture{Buffer: buf, PicW: 4, PicH: 4, BlockW: 4, BlockH: 4, Mode: ppa.ColorModeARGB8888}
	}
	bc := &ppa.BlendConfig{Bg: in(bg), Fg: in(fg), Out: fc.Out}

	nb := func(tag string) ppa.TransConfig { return ppa.TransConfig{Mode: ppa.NonBlocking, UserData: tag} }
	require.NoError(t, fill.Fill(fc, nb("fill-1")))
	require.NoError(t, blend.Blend(bc, nb("blend-1")))
	require.NoError(t, fill.Fill(fc, nb("fill-2")))
	require.NoError(t, blend.Blend(bc, nb("blend-2")))

	for d.Complete() {
	}
	data, _ := ev.snapshot()
	assert.Equal(t, []any{"fill-1", "blend-1", "fill-2", "blend-2"}, data)
	assert.Equal(t, 1, d.EngineStats(ppa.EngineBlend).MaxInFlight)
}

func TestQueueFull(t *testing.T) {
	d, r := newSim(t, sim.WithManualCompletion())
	c := register(t, r, ppa.OperationSRM, 1, nil)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	cfg := srmConfig(in, out, 4, 4)
	nb := ppa.TransConfig{Mode: ppa.NonBlocking}
	require.NoError(t, c.ScaleRotateMirror(cfg, nb))

	err := c.ScaleRotateMirror(cfg, nb)
	assert.ErrorIs(t, err, ppa.ErrQueueFull)
	assert.ErrorIs(t, err, ppa.ErrNoResources)
	assert.Equal(t, ppa.ClientStats{MaxPending: 1, Outstanding: 1}, c.Stats())

	require.True(t, d.Complete())
	require.NoError(t, c.ScaleRotateMirror(cfg, nb))
	require.True(t, d.Complete())
}

func TestQueueFullWhileBlocked(t *testing.T) {
	d, r := newSim(t, sim.WithManualCompletion())
	c := register(t, r, ppa.OperationSRM, 1, nil)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	cfg := srmConfig(in, out, 4, 4)
	done := make(chan error, 1)
	go func() { done <- c.ScaleRotateMirror(cfg, ppa.TransConfig{Mode: ppa.Blocking}) }()
	require.Eventually(t, func() bool { return d.Held() == 1 }, waitFor, pollEvery)

	for _, mode := range []ppa.TransMode{ppa.Blocking, ppa.NonBlocking} {
		assert.ErrorIs(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{Mode: mode}), ppa.ErrQueueFull, "mode %v", mode)
	}
	assert.Equal(t, ppa.ClientStats{MaxPending: 1, Outstanding: 1}, c.Stats())
	select {
	case err := <-done:
		t.Fatalf("blocking submission returned %v before completion", err)
	default:
	}

	require.True(t, d.Complete())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("blocking submission not woken by completion")
	}
	assert.Equal(t, ppa.ClientStats{MaxPending: 1, Free: 1}, c.Stats())
}

func TestUnregisterBusy(t *testing.T) {
	d, r := newSim(t, sim.WithManualCompletion())
	c := register(t, r, ppa.OperationSRM, 2, nil)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	require.NoError(t, c.ScaleRotateMirror(srmConfig(in, out, 4, 4), ppa.TransConfig{Mode: ppa.NonBlocking}))

	assert.ErrorIs(t, c.Unregister(), ppa.ErrBusy)
	assert.ErrorIs(t, r.Close(), ppa.ErrBusy)
	assert.Equal(t, 1, r.RefCount(ppa.EngineSRM), "failed unregister changes nothing")

	require.True(t, d.Complete())
	require.NoError(t, c.Unregister())
	assert.ErrorIs(t, c.Unregister(), ppa.ErrInvalidState)
	assert.ErrorIs(t, c.ScaleRotateMirror(srmConfig(in, out, 4, 4), ppa.TransConfig{}), ppa.ErrInvalidState)

	require.NoError(t, r.Close())
	_, err := r.RegisterClient(ppa.ClientConfig{Operation: ppa.OperationSRM})
	assert.ErrorIs(t, err, ppa.ErrInvalidState)
}

func TestEngineLifecycle(t *testing.T) {
	d, r := newSim(t)
	base := d.Memory().Mapped()
	assert.False(t, r.Active())
	assert.False(t, d.ClockEnabled())

	a := register(t, r, ppa.OperationSRM, 1, nil)
	b := register(t, r, ppa.OperationSRM, 1, nil)
	assert.Equal(t, 2, r.RefCount(ppa.EngineSRM))
	assert.Zero(t, r.RefCount(ppa.EngineBlend))
	assert.True(t, r.Active())
	assert.True(t, d.ClockEnabled())
	assert.Equal(t, 1, d.DMA().PoolRefs(0))
	assert.Equal(t, 1, d.RegisterResets())
	assert.Equal(t, base+2, d.Memory().Mapped(), "SRM descriptors")

	f := register(t, r, ppa.OperationFill, 1, nil)
	assert.Equal(t, base+5, d.Memory().Mapped(), "blend descriptors")
	assert.Equal(t, 1, d.RegisterResets(), "second engine shares the power-up")
	assert.Equal(t, 3, r.Clients())

	require.NoError(t, a.Unregister())
	require.NoError(t, f.Unregister())
	assert.Equal(t, 1, r.RefCount(ppa.EngineSRM))
	assert.Equal(t, base+2, d.Memory().Mapped())
	assert.True(t, r.Active())

	require.NoError(t, b.Unregister())
	assert.False(t, r.Active())
	assert.False(t, d.ClockEnabled())
	assert.Zero(t, d.DMA().PoolRefs(0))
	assert.Equal(t, base, d.Memory().Mapped())
}

func TestTransportRefusedOwn(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationSRM, 1, nil)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	cfg := srmConfig(in, out, 4, 4)
	d.FailNextEnqueue(1)
	err := c.ScaleRotateMirror(cfg, ppa.TransConfig{})
	assert.ErrorIs(t, err, ppa.ErrTransport)
	assert.Equal(t, ppa.ClientStats{MaxPending: 1, Free: 1}, c.Stats())

	require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{}))
	assert.Equal(t, 1, d.TransferStats().Refused)
}

func TestTransportRefusedQueued(t *testing.T) {
	d, r := newSim(t, sim.WithManualCompletion())
	var ev events
	c := register(t, r, ppa.OperationSRM, 2, ev.callback)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	cfg := srmConfig(in, out, 4, 4)
	require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{Mode: ppa.NonBlocking, UserData: "a"}))
	require.NoError(t, c.ScaleRotateMirror(cfg, ppa.TransConfig{Mode: ppa.NonBlocking, UserData: "b"}))

	d.FailNextEnqueue(1)
	require.True(t, d.Complete())
	assert.False(t, d.Complete(), "refused transaction never reached the engine")

	data, errs := ev.snapshot()
	require.Equal(t, []any{"b", "a"}, data)
	assert.ErrorIs(t, errs[0], ppa.ErrTransport)
	assert.NoError(t, errs[1])
	assert.Equal(t, ppa.ClientStats{MaxPending: 2, Free: 2}, c.Stats())
}

func TestRejectedSubmissionLeavesPoolAlone(t *testing.T) {
	d, r := newSim(t)
	c := register(t, r, ppa.OperationSRM, 2, nil)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	tests := []struct {
		name string
		mut  func(*ppa.SRMConfig)
		tc   ppa.TransConfig
	}{
		{"zero scale", func(c *ppa.SRMConfig) { c.ScaleX = 0 }, ppa.TransConfig{}},
		{"scale too large", func(c *ppa.SRMConfig) { c.ScaleY = 256 }, ppa.TransConfig{}},
		{"heap output", func(c *ppa.SRMConfig) { c.Out.Buffer = make([]byte, 64) }, ppa.TransConfig{}},
		{"misaligned output", func(c *ppa.SRMConfig) { c.Out.Buffer = out[4:] }, ppa.TransConfig{}},
		{"block outside", func(c *ppa.SRMConfig) { c.In.OffsetX = 1 }, ppa.TransConfig{}},
		{"unknown mode", func(*ppa.SRMConfig) {}, ppa.TransConfig{Mode: ppa.TransMode(7)}},
		{"byte swap on RGB888", func(c *ppa.SRMConfig) {
			c.In.Mode = ppa.ColorModeRGB888
			c.ByteSwap = true
		}, ppa.TransConfig{}},
		{"alpha ratio", func(c *ppa.SRMConfig) {
			c.Alpha = ppa.AlphaConfig{Mode: ppa.AlphaScale, ScaleRatio: 1.5}
		}, ppa.TransConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := srmConfig(in, out, 4, 4)
			tt.mut(cfg)
			err := c.ScaleRotateMirror(cfg, tt.tc)
			assert.ErrorIs(t, err, ppa.ErrInvalidArgument)
			assert.Equal(t, ppa.ClientStats{MaxPending: 2, Free: 2}, c.Stats())
		})
	}

	assert.ErrorIs(t, c.ScaleRotateMirror(nil, ppa.TransConfig{}), ppa.ErrInvalidArgument)
	assert.ErrorIs(t, c.Fill(&ppa.FillConfig{}, ppa.TransConfig{}), ppa.ErrInvalidArgument, "wrong operation")
	assert.Zero(t, d.EngineStats(ppa.EngineSRM).Started)
}

func TestBlockingCallback(t *testing.T) {
	d, r := newSim(t)
	var ev events
	c := register(t, r, ppa.OperationSRM, 1, nil)
	c.RegisterCallback(ev.callback)

	in, out := buffer(t, d, 64), buffer(t, d, 64)
	require.NoError(t, c.ScaleRotateMirror(srmConfig(in, out, 4, 4), ppa.TransConfig{UserData: 42}))

	require.Eventually(t, func() bool {
		data, _ := ev.snapshot()
		return len(data) == 1
	}, waitFor, pollEvery)
	data, _ := ev.snapshot()
	assert.Equal(t, []any{42}, data)
}

func TestConcurrentClients(t *testing.T) {
	d, r := newSim(t)

	const workers, rounds = 4, 25
	var wg sync.WaitGroup
	errc := make(chan error, 2*workers*rounds)
	var clients []*ppa.Client
	for i := range workers {
		op := ppa.OperationSRM
		if i%2 == 1 {
			op = ppa.OperationFill
		}
		c := register(t, r, op, 2, nil)
		clients = append(clients, c)
		in, out := buffer(t, d, 64), buffer(t, d, 64)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range rounds {
				var err error
				mode := ppa.TransMode(j % 2)
				if op == ppa.OperationSRM {
					err = c.ScaleRotateMirror(srmConfig(in, out, 4, 4), ppa.TransConfig{Mode: mode})
				} else {
					err = c.Fill(&ppa.FillConfig{
						Out:    ppa.OutPicture{Buffer: out, PicW: 4, PicH: 4, Mode: ppa.ColorModeARGB8888},
						BlockW: 4, BlockH: 4,
					}, ppa.TransConfig{Mode: mode})
				}
				if err != nil && !errors.Is(err, ppa.ErrQueueFull) {
					errc <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		t.Error(err)
	}

	for _, c := range clients {
		require.Eventually(t, func() bool { return c.Stats().Outstanding == 0 }, waitFor, pollEvery)
		st := c.Stats()
		assert.Equal(t, st.MaxPending, st.Free)
		require.NoError(t, c.Unregister())
	}
	assert.Equal(t, 1, d.EngineStats(ppa.EngineSRM).MaxInFlight)
	assert.Equal(t, 1, d.EngineStats(ppa.EngineBlend).MaxInFlight)
	assert.False(t, r.Active())
}
