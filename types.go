package ppa

import "fmt"

// EngineKind identifies one of the two PPA hardware engines.
type EngineKind uint8

const (
	// EngineSRM is the scale-rotate-mirror engine.
	EngineSRM EngineKind = iota

	// EngineBlend is the blending engine. It also performs fills.
	EngineBlend

	engineKindCount
)

// String returns the engine name.
func (k EngineKind) String() string {
	switch k {
	case EngineSRM:
		return "srm"
	case EngineBlend:
		return "blend"
	default:
		return fmt.Sprintf("EngineKind(%d)", uint8(k))
	}
}

// Operation is the kind of work a client submits.
type Operation uint8

const (
	// OperationSRM scales, rotates and mirrors a block.
	OperationSRM Operation = iota

	// OperationBlend alpha-blends a foreground block over a background block.
	OperationBlend

	// OperationFill fills a block with a constant color.
	OperationFill
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OperationSRM:
		return "srm"
	case OperationBlend:
		return "blend"
	case OperationFill:
		return "fill"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(op))
	}
}

// engineKind maps an operation to the engine that executes it.
func (op Operation) engineKind() (EngineKind, bool) {
	switch op {
	case OperationSRM:
		return EngineSRM, true
	case OperationBlend, OperationFill:
		return EngineBlend, true
	default:
		return 0, false
	}
}

// TransMode selects whether a submission waits for its completion.
type TransMode uint8

const (
	// Blocking waits for the busy gate and for the transaction to finish.
	Blocking TransMode = iota

	// NonBlocking queues the transaction and returns immediately. The
	// client's callback reports the completion.
	NonBlocking
)

// String returns the mode name.
func (m TransMode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "nonblocking"
	default:
		return fmt.Sprintf("TransMode(%d)", uint8(m))
	}
}

// RotationAngle is a counterclockwise rotation applied by the SRM engine.
type RotationAngle uint8

const (
	Rotate0 RotationAngle = iota
	Rotate90
	Rotate180
	Rotate270
)

// Degrees returns the angle in degrees.
func (a RotationAngle) Degrees() int { return int(a) * 90 }

// swapsAxes reports whether the output block is the transposed input block.
func (a RotationAngle) swapsAxes() bool { return a == Rotate90 || a == Rotate270 }

// AlphaMode selects how an engine treats the alpha channel of its input.
type AlphaMode uint8

const (
	// AlphaNoChange keeps the input alpha.
	AlphaNoChange AlphaMode = iota

	// AlphaFixValue replaces alpha with AlphaConfig.Value.
	AlphaFixValue

	// AlphaScale multiplies alpha by AlphaConfig.ScaleRatio.
	AlphaScale

	// AlphaInvert replaces alpha with 255 minus alpha.
	AlphaInvert
)

// AlphaConfig configures the alpha channel of one engine input.
type AlphaConfig struct {
	Mode AlphaMode

	// Value is the fixed alpha for AlphaFixValue.
	Value uint8

	// ScaleRatio is the factor for AlphaScale, strictly between 0 and 1.
	ScaleRatio float64
}

// regValue returns the value programmed into the alpha register.
func (a AlphaConfig) regValue() uint32 {
	switch a.Mode {
	case AlphaFixValue:
		return uint32(a.Value)
	case AlphaScale:
		return uint32(a.ScaleRatio * 256)
	default:
		return 0
	}
}

// YUVRange selects the quantization range of YUV data.
type YUVRange uint8

const (
	YUVRangeLimited YUVRange = iota
	YUVRangeFull
)

// YUVStd selects the conversion matrix between YUV and RGB.
type YUVStd uint8

const (
	YUVStdBT601 YUVStd = iota
	YUVStdBT709
)

// ARGB is a 32-bit color with alpha.
type ARGB struct {
	A, R, G, B uint8
}

// Uint32 returns the color packed as 0xAARRGGBB.
func (c ARGB) Uint32() uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Uint32 returns the color packed as 0x00RRGGBB.
func (c RGB) Uint32() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// ColorKey is an inclusive RGB range. Pixels inside it are keyed out.
type ColorKey struct {
	Low, High RGB
}

func (k ColorKey) valid() bool {
	return k.Low.R <= k.High.R && k.Low.G <= k.High.G && k.Low.B <= k.High.B
}

// InPicture describes an input picture and the block read from it.
type InPicture struct {
	Buffer []byte

	// PicW and PicH are the full picture dimensions in pixels.
	PicW, PicH int

	// BlockW and BlockH are the dimensions of the block to read.
	BlockW, BlockH int

	// OffsetX and OffsetY locate the block inside the picture.
	OffsetX, OffsetY int

	Mode ColorMode
}

// OutPicture describes an output picture and where the result is written.
// The block size follows from the operation.
type OutPicture struct {
	Buffer []byte

	PicW, PicH int

	OffsetX, OffsetY int

	Mode ColorMode
}

// SRMConfig describes a scale-rotate-mirror operation.
type SRMConfig struct {
	In  InPicture
	Out OutPicture

	Rotation RotationAngle

	// ScaleX and ScaleY are applied before rotation. Each must lie in
	// [1/15, 256); the engine resolves them to 1/16 steps.
	ScaleX, ScaleY float64

	MirrorX, MirrorY bool

	// RGBSwap swaps R and B of the input. RGB color modes only.
	RGBSwap bool

	// ByteSwap reverses the byte order of input pixels. ARGB8888 and
	// RGB565 only.
	ByteSwap bool

	Alpha AlphaConfig

	// YUV parameters used when the input or output is YUV.
	YUVRange YUVRange
	YUVStd   YUVStd
}

// BlendConfig describes a blend of a foreground block over a background
// block of the same size.
type BlendConfig struct {
	Bg  InPicture
	Fg  InPicture
	Out OutPicture

	BgRGBSwap  bool
	BgByteSwap bool
	BgAlpha    AlphaConfig

	FgRGBSwap  bool
	FgByteSwap bool
	FgAlpha    AlphaConfig

	// FgFixRGB is the color of A8 and A4 foreground pixels.
	FgFixRGB RGB

	// BgColorKey and FgColorKey enable color keying when non-nil.
	BgColorKey *ColorKey
	FgColorKey *ColorKey

	// KeyDefault is written where both layers are keyed out.
	KeyDefault RGB
}

// FillConfig describes a constant-color fill of a block.
type FillConfig struct {
	Out OutPicture

	BlockW, BlockH int

	Color ARGB
}

// TransConfig carries the per-submission options.
type TransConfig struct {
	Mode TransMode

	// UserData is handed back to the completion callback.
	UserData any
}

// Event reports a finished transaction to a client callback.
type Event struct {
	Operation Operation

	// Err is nil on success. It is non-nil when the transfer layer
	// refused the transaction after it had been queued.
	Err error
}

// Callback is invoked from interrupt context when a transaction of the
// client completes. It must not block. The result reports whether a
// higher-priority task was woken and a yield is needed.
type Callback func(c *Client, ev *Event, userData any) bool

// ClientConfig configures a new client.
type ClientConfig struct {
	Operation Operation

	// MaxPendingTransactions bounds the transactions the client can have
	// queued or running. Values below 1 are treated as 1.
	MaxPendingTransactions int

	// Callback is optional and may be replaced later with
	// Client.RegisterCallback.
	Callback Callback
}

// ClientStats is a consistent snapshot of a client's transaction pool.
type ClientStats struct {
	MaxPending  int
	Outstanding int
	Free        int
}
