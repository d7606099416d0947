// Package api defines the contracts between the image storage handles and
// the components that act on them: the codecs that physically move pixel
// bytes, and the block instructions handed to a distributor for execution.
package api

import (
	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// Codec is the storage-format capability for one on-disk layout. A codec
// never interprets pixel values; it only moves little-endian element bytes
// between disk and memory, honouring the row-major (x fastest, then y, then
// z) ordering of the grid.
//
// Implementations exist for the flat raw layout and the slice-sequence
// layout. Wrapping a Codec (for counting, tracing, or remoting) is the
// intended way to observe or redirect physical I/O.
type Codec interface {
	// Read decodes the whole image stored at path. The result holds
	// exactly dims.Volume()*elem.Size() bytes.
	Read(path string, dims geom.Vec3, elem voxel.Type) ([]byte, error)

	// Write persists data, a whole image of extent dims, to path,
	// creating or replacing it. len(data) must be
	// dims.Volume()*elem.Size().
	Write(path string, dims geom.Vec3, elem voxel.Type, data []byte) error

	// ReadBlock decodes the sub-region b of the image of extent dims
	// stored at path. The result holds b.Volume()*elem.Size() bytes in
	// row-major order of the block itself.
	ReadBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block) ([]byte, error)

	// WriteBlock persists data, a block of extent b.Size, into the image
	// of extent dims at path, at position b.Pos. The image is created or
	// grown to its full extent if it does not exist yet; bytes outside
	// the block are left untouched.
	WriteBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block, data []byte) error
}
