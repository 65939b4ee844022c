package ppa

import (
	"encoding/binary"
	"fmt"
)

// DescriptorSize is the encoded size of a 2D-DMA descriptor in bytes.
const DescriptorSize = 32

// maxField is the largest value of a 14-bit descriptor size field.
const maxField = 0x3FFF

// DescOwner says who may modify a descriptor.
type DescOwner uint8

const (
	OwnerCPU DescOwner = iota
	OwnerDMA
)

func (o DescOwner) String() string {
	if o == OwnerDMA {
		return "dma"
	}
	return "cpu"
}

// BlockMode selects how the 2D-DMA walks the block.
type BlockMode uint8

const (
	BlockSingle BlockMode = iota
	BlockDouble
)

func (m BlockMode) String() string {
	if m == BlockDouble {
		return "double"
	}
	return "single"
}

// Descriptor is one 2D-DMA descriptor. HALength and VASize describe the
// whole picture, HBLength and VBSize the block, X and Y its offset.
//
// Layout, little endian:
//
//	word0: vb_size[13:0] hb_length[27:14] err_eof[28] dma2d_en[29] suc_eof[30] owner[31]
//	word1: va_size[13:0] ha_length[27:14] pbyte[31:28]
//	word2: y[13:0] x[27:14] mode[28]
//	word3: reserved
//	bytes 16..23: buffer address
//	bytes 24..31: next descriptor address
type Descriptor struct {
	VBSize, HBLength uint16
	ErrEOF           bool
	DMA2DEnable      bool
	SucEOF           bool
	Owner            DescOwner

	VASize, HALength uint16
	PByte            uint8

	Y, X uint16
	Mode BlockMode

	Buffer uint64
	Next   uint64
}

// Encode writes d into b, which must hold DescriptorSize bytes.
func (d *Descriptor) Encode(b []byte) {
	_ = b[DescriptorSize-1]
	w0 := uint32(d.VBSize&maxField) | uint32(d.HBLength&maxField)<<14 |
		boolBit(d.ErrEOF)<<28 | boolBit(d.DMA2DEnable)<<29 |
		boolBit(d.SucEOF)<<30 | uint32(d.Owner&1)<<31
	w1 := uint32(d.VASize&maxField) | uint32(d.HALength&maxField)<<14 | uint32(d.PByte&0xF)<<28
	w2 := uint32(d.Y&maxField) | uint32(d.X&maxField)<<14 | uint32(d.Mode&1)<<28

	binary.LittleEndian.PutUint32(b[0:], w0)
	binary.LittleEndian.PutUint32(b[4:], w1)
	binary.LittleEndian.PutUint32(b[8:], w2)
	binary.LittleEndian.PutUint32(b[12:], 0)
	binary.LittleEndian.PutUint64(b[16:], d.Buffer)
	binary.LittleEndian.PutUint64(b[24:], d.Next)
}

// DecodeDescriptor parses a descriptor encoded by Encode.
func DecodeDescriptor(b []byte) (Descriptor, error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, fmt.Errorf("ppa: descriptor needs %d bytes, got %d", DescriptorSize, len(b))
	}
	w0 := binary.LittleEndian.Uint32(b[0:])
	w1 := binary.LittleEndian.Uint32(b[4:])
	w2 := binary.LittleEndian.Uint32(b[8:])
	return Descriptor{
		VBSize:      uint16(w0 & maxField),
		HBLength:    uint16(w0 >> 14 & maxField),
		ErrEOF:      w0>>28&1 == 1,
		DMA2DEnable: w0>>29&1 == 1,
		SucEOF:      w0>>30&1 == 1,
		Owner:       DescOwner(w0 >> 31),
		VASize:      uint16(w1 & maxField),
		HALength:    uint16(w1 >> 14 & maxField),
		PByte:       uint8(w1 >> 28),
		Y:           uint16(w2 & maxField),
		X:           uint16(w2 >> 14 & maxField),
		Mode:        BlockMode(w2 >> 28 & 1),
		Buffer:      binary.LittleEndian.Uint64(b[16:]),
		Next:        binary.LittleEndian.Uint64(b[24:]),
	}, nil
}

// String formats d for logs and dumps.
func (d Descriptor) String() string {
	return fmt.Sprintf("pic=%dx%d block=%dx%d at (%d,%d) pbyte=%d mode=%s owner=%s eof=%t en=%t err=%t buf=%#x next=%#x",
		d.HALength, d.VASize, d.HBLength, d.VBSize, d.X, d.Y, d.PByte,
		d.Mode, d.Owner, d.SucEOF, d.DMA2DEnable, d.ErrEOF, d.Buffer, d.Next)
}

// inDescriptor describes the block an engine reads from in.
func inDescriptor(in *InPicture, addr uint64) *Descriptor {
	return &Descriptor{
		VBSize: uint16(in.BlockH), HBLength: uint16(in.BlockW),
		DMA2DEnable: true, SucEOF: true, Owner: OwnerDMA,
		VASize: uint16(in.PicH), HALength: uint16(in.PicW),
		PByte: in.Mode.pbyte(),
		Y:     uint16(in.OffsetY), X: uint16(in.OffsetX),
		Buffer: addr,
	}
}

// outDescriptor describes the w x h block an engine writes to out.
func outDescriptor(out *OutPicture, w, h int, addr uint64) *Descriptor {
	return &Descriptor{
		VBSize: uint16(h), HBLength: uint16(w),
		DMA2DEnable: true, SucEOF: true, Owner: OwnerDMA,
		VASize: uint16(out.PicH), HALength: uint16(out.PicW),
		PByte: out.Mode.pbyte(),
		Y:     uint16(out.OffsetY), X: uint16(out.OffsetX),
		Buffer: addr,
	}
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
