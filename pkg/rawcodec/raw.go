// Package rawcodec reads and writes the flat binary image layout: a single
// file holding a raw little-endian element dump in row-major order.
package rawcodec

import (
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"

	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("rawcodec")

// Codec implements api.Codec for the flat raw layout.
type Codec struct{}

// New returns the flat-file codec. It is stateless and safe for concurrent
// use.
func New() *Codec {
	return &Codec{}
}

func (c *Codec) Read(path string, dims geom.Vec3, elem voxel.Type) ([]byte, error) {
	want := dims.Volume() * int64(elem.Size())

	f, err := os.Open(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer f.Close()

	data := make([]byte, want)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, Error.New("reading %s as %s image of %s: %w", path, elem, dims, err)
	}
	return data, nil
}

func (c *Codec) Write(path string, dims geom.Vec3, elem voxel.Type, data []byte) error {
	if want := dims.Volume() * int64(elem.Size()); int64(len(data)) != want {
		return Error.New("data is %d bytes, %s image of %s needs %d", len(data), elem, dims, want)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(os.WriteFile(path, data, 0o644))
}

func (c *Codec) ReadBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block) ([]byte, error) {
	if !b.In(dims) {
		return nil, Error.New("block %s outside image %s", b, dims)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer f.Close()

	es := int64(elem.Size())
	row := b.Size.X * es
	out := make([]byte, b.Volume()*es)

	for z := int64(0); z < b.Size.Z; z++ {
		for y := int64(0); y < b.Size.Y; y++ {
			src := (((b.Pos.Z+z)*dims.Y+(b.Pos.Y+y))*dims.X + b.Pos.X) * es
			dst := (z*b.Size.Y + y) * row
			if _, err := f.ReadAt(out[dst:dst+row], src); err != nil {
				return nil, Error.New("reading row at %d from %s: %w", src, path, err)
			}
		}
	}
	return out, nil
}

func (c *Codec) WriteBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block, data []byte) error {
	if !b.In(dims) {
		return Error.New("block %s outside image %s", b, dims)
	}
	es := int64(elem.Size())
	if int64(len(data)) != b.Volume()*es {
		return Error.New("block data is %d bytes, block %s needs %d", len(data), b, b.Volume()*es)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Error.Wrap(err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return Error.Wrap(err)
	}
	defer f.Close()

	// A block write may be the first touch of this generation's file;
	// extend it to the full image so rows land at their final offsets and
	// untouched regions stay addressable.
	full := dims.Volume() * es
	if st, err := f.Stat(); err != nil {
		return Error.Wrap(err)
	} else if st.Size() < full {
		if err := f.Truncate(full); err != nil {
			return Error.Wrap(err)
		}
	}

	row := b.Size.X * es
	for z := int64(0); z < b.Size.Z; z++ {
		for y := int64(0); y < b.Size.Y; y++ {
			dst := (((b.Pos.Z+z)*dims.Y+(b.Pos.Y+y))*dims.X + b.Pos.X) * es
			src := (z*b.Size.Y + y) * row
			if _, err := f.WriteAt(data[src:src+row], dst); err != nil {
				return Error.New("writing row at %d to %s: %w", dst, path, err)
			}
		}
	}
	return Error.Wrap(f.Sync())
}
