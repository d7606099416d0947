package runner

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habi/pi2"
	"github.com/habi/pi2/api"
	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/rawcodec"
	"github.com/habi/pi2/pkg/voxel"
)

// countingCodec wraps a codec and counts physical block transfers.
type countingCodec struct {
	api.Codec
	reads, writes atomic.Int64
}

func (c *countingCodec) ReadBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block) ([]byte, error) {
	c.reads.Add(1)
	return c.Codec.ReadBlock(path, dims, elem, b)
}

func (c *countingCodec) WriteBlock(path string, dims geom.Vec3, elem voxel.Type, b geom.Block, data []byte) error {
	c.writes.Add(1)
	return c.Codec.WriteBlock(path, dims, elem, b, data)
}

func countingCodecs(c *countingCodec) Codecs {
	return func(api.Format) api.Codec { return c }
}

func newTestSession(t *testing.T) *pi2.Session {
	t.Helper()
	s, err := pi2.NewSession(pi2.WithTempDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAllocBlockMovesNoBytes(t *testing.T) {
	s := newTestSession(t)
	dims := geom.V(4, 4, 4)

	source := filepath.Join(t.TempDir(), "src.raw")
	data := make([]byte, dims.Volume())
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, rawcodec.New().Write(source, dims, voxel.UInt8, data))

	h, err := s.CreateFrom("img", dims, voxel.UInt8, source)
	require.NoError(t, err)

	counting := &countingCodec{Codec: rawcodec.New()}
	r := New(countingCodecs(counting), 1, nil)

	// Output-only operand: executing the instruction allocates but never
	// touches the codec.
	alloc, err := h.EmitReadBlock(geom.V(0, 0, 0), dims, false)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), Job{Instrs: []api.Instruction{alloc}}))
	assert.Equal(t, int64(0), counting.reads.Load())

	read, err := h.EmitReadBlock(geom.V(0, 0, 0), dims, true)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), Job{Instrs: []api.Instruction{read}}))
	assert.Equal(t, int64(1), counting.reads.Load())
}

func TestBlockPipeline(t *testing.T) {
	s := newTestSession(t)
	dims := geom.V(4, 4, 4)

	// Seed a source volume on disk.
	source := filepath.Join(t.TempDir(), "src.raw")
	data := make([]byte, dims.Volume())
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, rawcodec.New().Write(source, dims, voxel.UInt8, data))

	img, err := pi2.Open[uint8](s, "img", dims, source)
	require.NoError(t, err)
	require.NoError(t, img.NewWriteTarget())

	// Two overlapping-free jobs, one z-slab each: read, add 100, write.
	var jobs []Job
	for _, b := range []geom.Block{
		{Pos: geom.V(0, 0, 0), Size: geom.V(4, 4, 2)},
		{Pos: geom.V(0, 0, 2), Size: geom.V(4, 4, 2)},
	} {
		read, err := img.EmitReadBlock(b.Pos, b.Size, true)
		require.NoError(t, err)
		write, err := img.EmitWriteBlock(b.Pos, geom.V(0, 0, 0), b.Size, "")
		require.NoError(t, err)

		jobs = append(jobs, Job{
			Instrs: []api.Instruction{read, write},
			Process: func(bufs map[string]*Block) error {
				buf := bufs["img"]
				for i := range buf.Data {
					buf.Data[i] += 100
				}
				return nil
			},
		})
	}

	r := New(nil, 2, nil)
	require.NoError(t, r.Run(context.Background(), jobs...))

	// Nothing promoted yet: reads still serve the original bytes.
	before := pi2.NewBuffer[uint8](dims)
	require.NoError(t, img.ReadTo(before))
	assert.Equal(t, data, before.Data)

	require.NoError(t, img.WriteComplete())

	after := pi2.NewBuffer[uint8](dims)
	require.NoError(t, img.ReadTo(after))
	for i := range data {
		assert.Equal(t, data[i]+100, after.Data[i])
	}
}

func TestWriteWithoutBuffer(t *testing.T) {
	r := New(nil, 1, nil)
	err := r.Run(context.Background(), Job{Instrs: []api.Instruction{{
		Op:        api.OpWriteBlock,
		Image:     "ghost",
		Elem:      voxel.UInt8,
		Path:      "out.raw",
		Dims:      geom.V(1, 1, 1),
		BlockSize: geom.V(1, 1, 1),
	}}})
	assert.Error(t, err)
}

func TestExtractSubRegion(t *testing.T) {
	buf := &Block{
		Dims: geom.V(4, 2, 1),
		Elem: voxel.UInt8,
		Data: []byte{0, 1, 2, 3, 4, 5, 6, 7},
	}

	sub, err := extract(buf, geom.Block{Pos: geom.V(1, 0, 0), Size: geom.V(2, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 5, 6}, sub)

	whole, err := extract(buf, geom.Block{Pos: geom.V(0, 0, 0), Size: buf.Dims})
	require.NoError(t, err)
	assert.Equal(t, buf.Data, whole)

	_, err = extract(buf, geom.Block{Pos: geom.V(3, 0, 0), Size: geom.V(2, 1, 1)})
	assert.Error(t, err)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(nil, 1, nil)
	err := r.Run(ctx, Job{Instrs: []api.Instruction{{
		Op:        api.OpAllocBlock,
		Image:     "img",
		Elem:      voxel.UInt8,
		BlockSize: geom.V(1, 1, 1),
	}}})
	assert.Error(t, err)
}
