package pi2

import (
	"github.com/habi/pi2/api"
	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/rawcodec"
	"github.com/habi/pi2/pkg/seqcodec"
	"github.com/habi/pi2/pkg/voxel"
)

// CodecFor returns the codec that physically moves bytes for the given
// storage format.
func CodecFor(f api.Format) api.Codec {
	if f == api.FormatSequence {
		return seqcodec.New()
	}
	return rawcodec.New()
}

// Buffer is a whole image materialized in memory: a contiguous row-major
// (x fastest, then y, then z) element slice plus its extent.
type Buffer[T voxel.Scalar] struct {
	Dims geom.Vec3
	Data []T
}

// NewBuffer allocates a zeroed buffer of the given extent.
func NewBuffer[T voxel.Scalar](dims geom.Vec3) *Buffer[T] {
	return &Buffer[T]{Dims: dims, Data: make([]T, dims.Volume())}
}

// Resize adjusts the buffer to a new extent. A change in volume reallocates
// to zeroed contents; a same-volume resize keeps the backing slice.
func (b *Buffer[T]) Resize(dims geom.Vec3) {
	if int64(len(b.Data)) != dims.Volume() {
		b.Data = make([]T, dims.Volume())
	}
	b.Dims = dims
}

// At returns the element at (x, y, z).
func (b *Buffer[T]) At(x, y, z int64) T {
	return b.Data[(z*b.Dims.Y+y)*b.Dims.X+x]
}

// Set stores the element at (x, y, z).
func (b *Buffer[T]) Set(x, y, z int64, v T) {
	b.Data[(z*b.Dims.Y+y)*b.Dims.X+x] = v
}

// Image binds a concrete pixel element type to a storage handle and adds the
// whole-image transfers that bypass block distribution. All block-level
// operations come from the embedded Handle.
type Image[T voxel.Scalar] struct {
	*Handle
}

// New registers a transient typed image, deriving the element tag from T.
func New[T voxel.Scalar](s *Session, name string, dims geom.Vec3) (*Image[T], error) {
	h, err := s.Create(name, dims, voxel.TypeOf[T]())
	if err != nil {
		return nil, err
	}
	return &Image[T]{Handle: h}, nil
}

// Open registers a typed image backed by an existing file or slice
// directory, deriving the element tag from T.
func Open[T voxel.Scalar](s *Session, name string, dims geom.Vec3, source string) (*Image[T], error) {
	h, err := s.CreateFrom(name, dims, voxel.TypeOf[T](), source)
	if err != nil {
		return nil, err
	}
	return &Image[T]{Handle: h}, nil
}

// ReadTo pulls the entire image into buf, resizing it to the image extent.
// If the image has no durable data yet, buf is left zeroed at the correct
// size; no disk access happens.
func (im *Image[T]) ReadTo(buf *Buffer[T]) error {
	buf.Resize(im.dims)

	if !im.IsSavedToDisk() {
		return nil
	}

	raw, err := CodecFor(im.format).Read(im.readSource, im.dims, im.elem)
	if err != nil {
		return err
	}
	return voxel.Decode(raw, buf.Data)
}

// SetData replaces the image's persisted content with buf, resizing the
// image to the buffer extent. This is the non-distributed fast path: it
// still goes through the same rotation and promotion protocol as block
// writes, so its result is indistinguishable downstream from a distributed
// write.
func (im *Image[T]) SetData(buf *Buffer[T]) error {
	h := im.Handle

	if int64(len(buf.Data)) != buf.Dims.Volume() {
		return Error.New("image %q: buffer has %d elements, extent %s needs %d",
			h.name, len(buf.Data), buf.Dims, buf.Dims.Volume())
	}
	if err := h.EnsureSize(buf.Dims); err != nil {
		return err
	}

	// The previous generation may have promoted into the current target;
	// rotate away from it so the write never clobbers readable data.
	if h.writeTarget == h.readSource {
		if err := h.NewWriteTarget(); err != nil {
			return err
		}
	}

	if err := CodecFor(h.format).Write(h.writeTarget, h.dims, h.elem, voxel.Encode(buf.Data)); err != nil {
		return err
	}

	h.state = stateWriting
	return h.WriteComplete()
}
