// Package seqcodec reads and writes the image-sequence layout: a directory
// holding one grayscale PNG per z-slice, named slice_0000.png, slice_0001.png
// and so on in ascending z order.
//
// PNG can carry 8- and 16-bit grayscale samples, so only the uint8 and
// uint16 element kinds are representable in this layout.
package seqcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"

	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("seqcodec")

// Codec implements api.Codec for the slice-sequence layout.
type Codec struct{}

// New returns the sequence codec. It is stateless and safe for concurrent
// use.
func New() *Codec {
	return &Codec{}
}

func slicePath(dir string, z int64) string {
	return filepath.Join(dir, fmt.Sprintf("slice_%04d.png", z))
}

func checkElem(elem voxel.Type) error {
	if elem != voxel.UInt8 && elem != voxel.UInt16 {
		return Error.New("element type %s is not representable as png slices", elem)
	}
	return nil
}

func (c *Codec) Read(path string, dims geom.Vec3, elem voxel.Type) ([]byte, error) {
	return c.read(path, dims, elem, geom.Block{Size: dims})
}

func (c *Codec) ReadBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block) ([]byte, error) {
	if !b.In(dims) {
		return nil, Error.New("block %s outside image %s", b, dims)
	}
	return c.read(path, dims, elem, b)
}

func (c *Codec) read(path string, dims geom.Vec3, elem voxel.Type, b geom.Block) ([]byte, error) {
	if err := checkElem(elem); err != nil {
		return nil, err
	}

	es := int64(elem.Size())
	row := b.Size.X * es
	out := make([]byte, b.Volume()*es)

	for z := int64(0); z < b.Size.Z; z++ {
		slice, err := readSlice(slicePath(path, b.Pos.Z+z), dims, elem)
		if err != nil {
			return nil, err
		}
		for y := int64(0); y < b.Size.Y; y++ {
			src := ((b.Pos.Y+y)*dims.X + b.Pos.X) * es
			dst := (z*b.Size.Y + y) * row
			copy(out[dst:dst+row], slice[src:src+row])
		}
	}
	return out, nil
}

func (c *Codec) Write(path string, dims geom.Vec3, elem voxel.Type, data []byte) error {
	if want := dims.Volume() * int64(elem.Size()); int64(len(data)) != want {
		return Error.New("data is %d bytes, %s image of %s needs %d", len(data), elem, dims, want)
	}
	return c.write(path, dims, elem, geom.Block{Size: dims}, data)
}

func (c *Codec) WriteBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block, data []byte) error {
	if !b.In(dims) {
		return Error.New("block %s outside image %s", b, dims)
	}
	if want := b.Volume() * int64(elem.Size()); int64(len(data)) != want {
		return Error.New("block data is %d bytes, block %s needs %d", len(data), b, want)
	}
	return c.write(path, dims, elem, b, data)
}

func (c *Codec) write(path string, dims geom.Vec3, elem voxel.Type, b geom.Block, data []byte) error {
	if err := checkElem(elem); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Error.Wrap(err)
	}

	es := int64(elem.Size())
	sliceLen := dims.X * dims.Y * es
	row := b.Size.X * es
	fullSlice := b.Pos.X == 0 && b.Pos.Y == 0 && b.Size.X == dims.X && b.Size.Y == dims.Y

	for z := int64(0); z < b.Size.Z; z++ {
		sp := slicePath(path, b.Pos.Z+z)

		var slice []byte
		if fullSlice {
			slice = make([]byte, sliceLen)
		} else {
			// Partial coverage: merge into whatever the slice holds
			// already, starting from zeros if it does not exist yet.
			existing, err := readSlice(sp, dims, elem)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if existing == nil {
				existing = make([]byte, sliceLen)
			}
			slice = existing
		}

		for y := int64(0); y < b.Size.Y; y++ {
			dst := ((b.Pos.Y+y)*dims.X + b.Pos.X) * es
			src := (z*b.Size.Y + y) * row
			copy(slice[dst:dst+row], data[src:src+row])
		}

		if err := writeSlice(sp, dims, elem, slice); err != nil {
			return err
		}
	}
	return nil
}

// readSlice decodes one z-slice into little-endian element bytes of length
// dims.X*dims.Y*elem.Size().
func readSlice(path string, dims geom.Vec3, elem voxel.Type) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, Error.New("decoding %s: %w", path, err)
	}
	bounds := img.Bounds()
	if int64(bounds.Dx()) != dims.X || int64(bounds.Dy()) != dims.Y {
		return nil, Error.New("slice %s is %dx%d, image is %s", path, bounds.Dx(), bounds.Dy(), dims)
	}

	n := dims.X * dims.Y
	switch elem {
	case voxel.UInt8:
		gray, ok := img.(*image.Gray)
		if !ok {
			return nil, Error.New("slice %s is not 8-bit grayscale", path)
		}
		out := make([]byte, n)
		for y := int64(0); y < dims.Y; y++ {
			copy(out[y*dims.X:(y+1)*dims.X], gray.Pix[int64(gray.Stride)*y:])
		}
		return out, nil
	case voxel.UInt16:
		gray, ok := img.(*image.Gray16)
		if !ok {
			return nil, Error.New("slice %s is not 16-bit grayscale", path)
		}
		// Gray16 stores big-endian samples; the element layout is
		// little-endian.
		out := make([]byte, n*2)
		for y := int64(0); y < dims.Y; y++ {
			for x := int64(0); x < dims.X; x++ {
				v := binary.BigEndian.Uint16(gray.Pix[int64(gray.Stride)*y+x*2:])
				binary.LittleEndian.PutUint16(out[(y*dims.X+x)*2:], v)
			}
		}
		return out, nil
	}
	return nil, checkElem(elem)
}

// writeSlice encodes one z-slice from little-endian element bytes.
func writeSlice(path string, dims geom.Vec3, elem voxel.Type, slice []byte) error {
	rect := image.Rect(0, 0, int(dims.X), int(dims.Y))

	var img image.Image
	switch elem {
	case voxel.UInt8:
		gray := image.NewGray(rect)
		copy(gray.Pix, slice)
		img = gray
	case voxel.UInt16:
		gray := image.NewGray16(rect)
		for i := int64(0); i < dims.X*dims.Y; i++ {
			v := binary.LittleEndian.Uint16(slice[i*2:])
			binary.BigEndian.PutUint16(gray.Pix[i*2:], v)
		}
		img = gray
	default:
		return checkElem(elem)
	}

	f, err := os.Create(path)
	if err != nil {
		return Error.Wrap(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return Error.New("encoding %s: %w", path, err)
	}
	return Error.Wrap(f.Close())
}
