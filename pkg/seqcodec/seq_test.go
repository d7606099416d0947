package seqcodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

func TestRoundTripUint8(t *testing.T) {
	c := New()
	dims := geom.V(5, 4, 3)
	dir := filepath.Join(t.TempDir(), "seq")

	data := make([]byte, dims.Volume())
	for i := range data {
		data[i] = byte(i * 3)
	}
	require.NoError(t, c.Write(dir, dims, voxel.UInt8, data))

	// One png per slice, named by z index.
	for _, name := range []string{"slice_0000.png", "slice_0001.png", "slice_0002.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}

	got, err := c.Read(dir, dims, voxel.UInt8)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRoundTripUint16(t *testing.T) {
	c := New()
	dims := geom.V(3, 2, 2)
	dir := filepath.Join(t.TempDir(), "seq")

	src := make([]uint16, dims.Volume())
	for i := range src {
		src[i] = uint16(i * 5000)
	}
	data := voxel.Encode(src)
	require.NoError(t, c.Write(dir, dims, voxel.UInt16, data))

	got, err := c.Read(dir, dims, voxel.UInt16)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUnsupportedElement(t *testing.T) {
	c := New()
	dims := geom.V(2, 2, 1)
	dir := filepath.Join(t.TempDir(), "seq")

	err := c.Write(dir, dims, voxel.Float32, make([]byte, dims.Volume()*4))
	assert.Error(t, err)

	_, err = c.Read(dir, dims, voxel.Int64)
	assert.Error(t, err)
}

func TestReadBlock(t *testing.T) {
	c := New()
	dims := geom.V(4, 4, 3)
	dir := filepath.Join(t.TempDir(), "seq")

	data := make([]byte, dims.Volume())
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, c.Write(dir, dims, voxel.UInt8, data))

	b := geom.Block{Pos: geom.V(1, 1, 1), Size: geom.V(2, 2, 2)}
	got, err := c.ReadBlock(dir, dims, voxel.UInt8, b)
	require.NoError(t, err)

	want := make([]byte, 0, b.Volume())
	for z := b.Pos.Z; z < b.End().Z; z++ {
		for y := b.Pos.Y; y < b.End().Y; y++ {
			for x := b.Pos.X; x < b.End().X; x++ {
				want = append(want, data[(z*dims.Y+y)*dims.X+x])
			}
		}
	}
	assert.Equal(t, want, got)
}

func TestWriteBlockIntoMissingSlices(t *testing.T) {
	c := New()
	dims := geom.V(4, 4, 2)
	dir := filepath.Join(t.TempDir(), "seq")

	// Partial block into a directory that does not exist yet: the touched
	// slices materialize with zeros outside the block.
	b := geom.Block{Pos: geom.V(1, 2, 0), Size: geom.V(2, 1, 2)}
	require.NoError(t, c.WriteBlock(dir, dims, voxel.UInt8, b, []byte{1, 2, 3, 4}))

	full, err := c.Read(dir, dims, voxel.UInt8)
	require.NoError(t, err)

	want := make([]byte, dims.Volume())
	want[0*16+2*4+1], want[0*16+2*4+2] = 1, 2
	want[1*16+2*4+1], want[1*16+2*4+2] = 3, 4
	assert.Equal(t, want, full)
}

func TestWriteBlockMergesExisting(t *testing.T) {
	c := New()
	dims := geom.V(3, 3, 1)
	dir := filepath.Join(t.TempDir(), "seq")

	base := make([]byte, dims.Volume())
	for i := range base {
		base[i] = 9
	}
	require.NoError(t, c.Write(dir, dims, voxel.UInt8, base))

	b := geom.Block{Pos: geom.V(1, 1, 0), Size: geom.V(1, 1, 1)}
	require.NoError(t, c.WriteBlock(dir, dims, voxel.UInt8, b, []byte{42}))

	full, err := c.Read(dir, dims, voxel.UInt8)
	require.NoError(t, err)

	want := append([]byte{}, base...)
	want[1*3+1] = 42
	assert.Equal(t, want, full)
}
