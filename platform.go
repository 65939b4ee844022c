package ppa

import "errors"

// Platform bundles the collaborators the driver core programs. The PPA
// register file, the 2D-DMA transfer layer, the cache and DMA-capable
// memory are all supplied by the platform; see package sim for a software
// model.
type Platform struct {
	Control   Controller
	Transport Transport
	Sync      MemorySyncer
	Memory    Allocator
}

func (p Platform) validate() error {
	switch {
	case p.Control == nil:
		return errors.New("ppa: platform has no controller")
	case p.Transport == nil:
		return errors.New("ppa: platform has no transport")
	case p.Sync == nil:
		return errors.New("ppa: platform has no memory syncer")
	case p.Memory == nil:
		return errors.New("ppa: platform has no allocator")
	}
	return nil
}

// Controller is the peripheral-level control of the PPA.
type Controller interface {
	// EnableBusClock gates the peripheral bus clock.
	EnableBusClock(on bool)

	// ResetRegisters resets the whole register file.
	ResetRegisters()

	SRM() SRMRegs
	Blend() BlendRegs
}

// SRMRegs programs the scale-rotate-mirror engine.
type SRMRegs interface {
	Reset()
	SetRxColorMode(m ColorMode)
	SetRxYUVRange(r YUVRange)
	SetYUVToRGBStd(s YUVStd)
	EnableRxByteSwap(on bool)
	EnableRxRGBSwap(on bool)
	ConfigureRxAlpha(mode AlphaMode, value uint32)
	SetTxColorMode(m ColorMode)
	SetTxYUVRange(r YUVRange)
	SetRGBToYUVStd(s YUVStd)
	SetRotation(a RotationAngle)
	SetScalingX(intPart, fracPart uint32)
	SetScalingY(intPart, fracPart uint32)
	EnableMirrorX(on bool)
	EnableMirrorY(on bool)
	Start()
}

// BlendMode selects what a Blend engine start does.
type BlendMode uint8

const (
	BlendModeBlend BlendMode = iota
	BlendModeFill
)

// BlendRegs programs the blending engine.
type BlendRegs interface {
	Reset()
	SetRxBgColorMode(m ColorMode)
	EnableRxBgByteSwap(on bool)
	EnableRxBgRGBSwap(on bool)
	ConfigureRxBgAlpha(mode AlphaMode, value uint32)
	SetRxFgColorMode(m ColorMode)
	SetRxFgFixRGB(c RGB)
	EnableRxFgByteSwap(on bool)
	EnableRxFgRGBSwap(on bool)
	ConfigureRxFgAlpha(mode AlphaMode, value uint32)
	ConfigureBgColorKey(enable bool, k ColorKey)
	ConfigureFgColorKey(enable bool, k ColorKey)
	SetColorKeyDefault(c RGB)
	SetTxColorMode(m ColorMode)
	ConfigureFillBlock(c ARGB, w, h int)
	Start(mode BlendMode)
}

// Transport is the 2D-DMA block-transfer layer.
type Transport interface {
	// AcquirePool returns the transfer pool with the given id.
	AcquirePool(id int) (TransferPool, error)
}

// TransferPool queues transfer jobs for channel reservation.
type TransferPool interface {
	// Enqueue queues job. Its OnPicked hook runs once the requested
	// channels are reserved, either before Enqueue returns or later in
	// interrupt context.
	Enqueue(job *TransferJob) error

	// Release gives the pool back.
	Release() error
}

// TransferJob requests channels from a TransferPool. The driver
// pre-allocates one per transaction.
type TransferJob struct {
	TxChannels int
	RxChannels int

	// OnPicked programs the reserved channels and starts the engine. It
	// returns whether a yield is needed.
	OnPicked func(chans []Channel) bool
}

// ChannelDirection is the direction of a 2D-DMA channel as seen from
// memory: TX reads from memory into an engine, RX writes engine output.
type ChannelDirection uint8

const (
	DirTX ChannelDirection = iota
	DirRX
)

// Trigger identifies the engine port a channel is connected to.
type Trigger uint8

const (
	TriggerSRMTX Trigger = iota
	TriggerSRMRX
	TriggerBlendBgTX
	TriggerBlendFgTX
	TriggerBlendRX
)

// TransferAbility configures burst behavior of a channel.
type TransferAbility struct {
	// DataBurst is the data burst length in bytes.
	DataBurst int

	// DescBurst enables burst reads of descriptors.
	DescBurst bool
}

// CSC selects the color space conversion performed inside a channel.
type CSC uint8

const (
	CSCNone CSC = iota
	CSCTxYUV444ToRGB888BT601
	CSCTxYUV444ToRGB888BT709
	CSCTxYUV422ToRGB888BT601
	CSCTxYUV422ToRGB888BT709
	CSCRxYUV420ToYUV444
)

// EOFHandler runs in interrupt context when an RX channel finished its
// descriptor chain. It returns whether a yield is needed.
type EOFHandler func(ch Channel) bool

// Channel is a reserved 2D-DMA channel.
type Channel interface {
	Direction() ChannelDirection
	Connect(t Trigger)
	SetTransferAbility(a TransferAbility)
	ConfigureCSC(c CSC)
	RegisterRxEOF(h EOFHandler)
	SetDescriptorAddr(addr uint64)
	Start()
}

// SyncFlags selects the direction and alignment rules of a cache sync.
type SyncFlags uint8

const (
	// SyncDirC2M writes dirty cache lines back to memory.
	SyncDirC2M SyncFlags = 1 << iota

	// SyncDirM2C invalidates cache lines so the next read sees memory.
	SyncDirM2C

	// SyncUnaligned permits a range that is not cache-line aligned.
	SyncUnaligned
)

// MemorySyncer keeps the CPU cache coherent with DMA.
type MemorySyncer interface {
	// CacheLineSize returns the line size in bytes, 0 when there is no
	// cache in front of DMA memory.
	CacheLineSize() int

	// Sync synchronizes buf, a sub-slice of DMA-capable memory.
	Sync(buf []byte, flags SyncFlags) error
}

// Mem is a block of DMA-capable memory.
type Mem interface {
	Buf() []byte
	PhysAddr() uint64
	Close() error
}

// Allocator hands out DMA-capable memory and resolves DMA addresses of
// caller buffers.
type Allocator interface {
	Alloc(size, align int) (Mem, error)

	// IsDMACapable reports whether the engines can write to buf.
	IsDMACapable(buf []byte) bool

	// PhysAddr returns the bus address of buf, or false when DMA cannot
	// reach it.
	PhysAddr(buf []byte) (uint64, bool)
}

// PowerLock keeps the system out of low-power states that would stop the
// PPA clock. Both methods must be callable from any goroutine.
type PowerLock interface {
	Acquire() error
	Release() error
}
