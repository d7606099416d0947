package api

import (
	"fmt"

	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// Op is the kind of work a block instruction asks a worker to perform.
type Op uint8

const (
	// OpReadBlock loads a sub-region of an on-disk image into the
	// worker's local buffer for the named image.
	OpReadBlock Op = iota

	// OpAllocBlock allocates a zeroed local buffer for the named image
	// without touching disk. Emitted when a block is an output-only
	// operand, or when the image has no durable data yet.
	OpAllocBlock

	// OpWriteBlock persists a sub-region of the worker's local buffer
	// into an on-disk image.
	OpWriteBlock
)

func (op Op) String() string {
	switch op {
	case OpReadBlock:
		return "readblock"
	case OpAllocBlock:
		return "allocblock"
	case OpWriteBlock:
		return "writeblock"
	}
	return "unknown"
}

// Instruction is one opaque unit of block work, produced by a storage handle
// and executed by a worker under the control of an external distributor. The
// handle fills in where the bytes live right now; the distributor decides
// when and where the instruction runs.
type Instruction struct {
	// Op selects what the worker does.
	Op Op

	// Image is the name the worker's buffer for this image is kept under.
	Image string

	// Elem is the pixel element kind of the image.
	Elem voxel.Type

	// Path locates the on-disk image (a file for the raw format, a
	// directory for the sequence format). Empty for OpAllocBlock.
	Path string

	// Format is the physical layout at Path.
	Format Format

	// Dims is the full extent of the on-disk image at Path.
	Dims geom.Vec3

	// FilePos is the block's position within the on-disk image.
	FilePos geom.Vec3

	// ImagePos is the block's position within the worker's local buffer.
	// Only meaningful for OpWriteBlock.
	ImagePos geom.Vec3

	// BlockSize is the extent of the block.
	BlockSize geom.Vec3
}

// String renders the instruction in the textual script form consumed by the
// instruction encoder.
func (in Instruction) String() string {
	switch in.Op {
	case OpReadBlock:
		return fmt.Sprintf("readblock(%s, %s, %d, %d, %d, %d, %d, %d, %s);",
			in.Image, in.Path,
			in.FilePos.X, in.FilePos.Y, in.FilePos.Z,
			in.BlockSize.X, in.BlockSize.Y, in.BlockSize.Z,
			in.Elem)
	case OpAllocBlock:
		return fmt.Sprintf("newimage(%s, %s, %d, %d, %d);",
			in.Image, in.Elem,
			in.BlockSize.X, in.BlockSize.Y, in.BlockSize.Z)
	case OpWriteBlock:
		verb := "writerawblock"
		if in.Format == FormatSequence {
			verb = "writeseqblock"
		}
		return fmt.Sprintf("%s(%s, %s, %d, %d, %d, %d, %d, %d, %d, %d, %d, %d, %d, %d);",
			verb, in.Image, in.Path,
			in.FilePos.X, in.FilePos.Y, in.FilePos.Z,
			in.Dims.X, in.Dims.Y, in.Dims.Z,
			in.ImagePos.X, in.ImagePos.Y, in.ImagePos.Z,
			in.BlockSize.X, in.BlockSize.Y, in.BlockSize.Z)
	}
	return "nop();"
}
