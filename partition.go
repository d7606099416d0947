package pi2

import (
	"storj.io/common/memory"

	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// Partition divides an image of the given extent into full-width z-slabs of
// roughly target bytes each, the unit a distributor hands to one worker.
// Slabs cover the image exactly, without overlap; neighborhood operations
// that need overlapping input enlarge their read blocks themselves and rely
// on the rotation protocol to keep the overlap readable.
func Partition(dims geom.Vec3, elem voxel.Type, target memory.Size) []geom.Block {
	sliceBytes := dims.X * dims.Y * int64(elem.Size())

	slabDepth := int64(1)
	if sliceBytes > 0 {
		slabDepth = target.Int64() / sliceBytes
	}
	if slabDepth < 1 {
		slabDepth = 1
	}
	if slabDepth > dims.Z {
		slabDepth = dims.Z
	}

	numSlabs := (dims.Z + slabDepth - 1) / slabDepth
	blocks := make([]geom.Block, 0, numSlabs)

	for z := int64(0); z < dims.Z; z += slabDepth {
		depth := min(slabDepth, dims.Z-z)
		blocks = append(blocks, geom.Block{
			Pos:  geom.V(0, 0, z),
			Size: geom.V(dims.X, dims.Y, depth),
		})
	}
	return blocks
}

// Partition divides the handle's image into z-slabs of the session's
// configured block size.
func (s *Session) Partition(h *Handle) []geom.Block {
	return Partition(h.Dimensions(), h.ElemType(), s.cfg.BlockSize)
}
