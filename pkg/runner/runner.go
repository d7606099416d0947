// Package runner executes block instructions locally, standing in for the
// worker side of a distributed deployment. A job is one batch of
// instructions sharing a private buffer space, the way one worker process
// would hold its local images; jobs run concurrently against the codecs.
//
// The runner has no scheduling policy of its own: it executes whatever jobs
// it is handed, in whatever grouping the caller chose. Sequencing rotations
// and promotions around jobs remains the caller's responsibility.
package runner

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"golang.org/x/sync/errgroup"

	"github.com/habi/pi2/api"
	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/rawcodec"
	"github.com/habi/pi2/pkg/seqcodec"
	"github.com/habi/pi2/pkg/voxel"
)

// Error is the class of errors returned by this package.
var Error = errs.Class("runner")

// Codecs resolves a storage format to the codec that serves it. Wrapping the
// returned codecs is the hook for counting or redirecting physical I/O.
type Codecs func(api.Format) api.Codec

func defaultCodecs() Codecs {
	raw := rawcodec.New()
	seq := seqcodec.New()
	return func(f api.Format) api.Codec {
		if f == api.FormatSequence {
			return seq
		}
		return raw
	}
}

// Block is one image buffer held by a job while it executes: the worker's
// local copy of a rectangular sub-region.
type Block struct {
	Dims geom.Vec3
	Elem voxel.Type
	Data []byte
}

// Job is one batch of instructions executed sequentially over a private
// buffer space keyed by image name.
type Job struct {
	Instrs []api.Instruction

	// Process, if set, runs once before the job's first write
	// instruction, with every buffer loaded so far. This is where the
	// numeric work on a block happens.
	Process func(bufs map[string]*Block) error
}

// Runner executes jobs against the storage codecs.
type Runner struct {
	codecs  Codecs
	workers int
	logger  *slog.Logger
}

// New builds a runner. A nil codecs falls back to the on-disk codecs, a
// non-positive workers to the number of CPUs, and a nil logger to
// slog.Default().
func New(codecs Codecs, workers int, logger *slog.Logger) *Runner {
	if codecs == nil {
		codecs = defaultCodecs()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{codecs: codecs, workers: workers, logger: logger}
}

// Run executes the jobs, at most the configured number concurrently, and
// returns the first failure. A failed job aborts the batch; on-disk state of
// other images is whatever their own jobs got to.
func (r *Runner) Run(ctx context.Context, jobs ...Job) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for _, job := range jobs {
		job := job
		group.Go(func() error {
			return r.runJob(ctx, job)
		})
	}
	return group.Wait()
}

func (r *Runner) runJob(ctx context.Context, job Job) error {
	id := uuid.New()
	bufs := make(map[string]*Block)
	processed := false

	r.logger.Debug("job started", "job", id, "instructions", len(job.Instrs))

	for _, in := range job.Instrs {
		if err := ctx.Err(); err != nil {
			return Error.Wrap(err)
		}

		if in.Op == api.OpWriteBlock && !processed && job.Process != nil {
			if err := job.Process(bufs); err != nil {
				return Error.New("job %s: %w", id, err)
			}
			processed = true
		}

		if err := r.exec(in, bufs); err != nil {
			return Error.New("job %s: %s: %w", id, in.Op, err)
		}
	}

	// A job with no writes still gets its Process call.
	if !processed && job.Process != nil {
		if err := job.Process(bufs); err != nil {
			return Error.New("job %s: %w", id, err)
		}
	}

	r.logger.Debug("job finished", "job", id)

	return nil
}

func (r *Runner) exec(in api.Instruction, bufs map[string]*Block) error {
	switch in.Op {
	case api.OpAllocBlock:
		bufs[in.Image] = &Block{
			Dims: in.BlockSize,
			Elem: in.Elem,
			Data: make([]byte, in.BlockSize.Volume()*int64(in.Elem.Size())),
		}
		return nil

	case api.OpReadBlock:
		data, err := r.codecs(in.Format).ReadBlock(
			in.Path, in.Dims, in.Elem, geom.Block{Pos: in.FilePos, Size: in.BlockSize})
		if err != nil {
			return err
		}
		bufs[in.Image] = &Block{Dims: in.BlockSize, Elem: in.Elem, Data: data}
		return nil

	case api.OpWriteBlock:
		buf, ok := bufs[in.Image]
		if !ok {
			return Error.New("no buffer for image %q", in.Image)
		}
		sub, err := extract(buf, geom.Block{Pos: in.ImagePos, Size: in.BlockSize})
		if err != nil {
			return err
		}
		return r.codecs(in.Format).WriteBlock(
			in.Path, in.Dims, in.Elem, geom.Block{Pos: in.FilePos, Size: in.BlockSize}, sub)
	}
	return Error.New("unknown op %d", in.Op)
}

// extract copies the sub-region b out of a buffer, preserving row-major
// order within the extracted block.
func extract(buf *Block, b geom.Block) ([]byte, error) {
	if !b.In(buf.Dims) {
		return nil, Error.New("region %s outside buffer %s", b, buf.Dims)
	}
	if b.Pos == (geom.Vec3{}) && b.Size == buf.Dims {
		return buf.Data, nil
	}

	es := int64(buf.Elem.Size())
	row := b.Size.X * es
	out := make([]byte, b.Volume()*es)
	for z := int64(0); z < b.Size.Z; z++ {
		for y := int64(0); y < b.Size.Y; y++ {
			src := (((b.Pos.Z+z)*buf.Dims.Y+(b.Pos.Y+y))*buf.Dims.X + b.Pos.X) * es
			dst := (z*b.Size.Y + y) * row
			copy(out[dst:dst+row], buf.Data[src:src+row])
		}
	}
	return out, nil
}
