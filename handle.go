package pi2

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"

	"github.com/habi/pi2/api"
	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// writeState tracks where a handle sits in the write protocol of one
// generation.
type writeState uint8

const (
	// stateIdle: no write generation in flight. Emitting a write block to
	// temp storage starts one.
	stateIdle writeState = iota

	// stateWriting: write blocks for the current generation have been
	// emitted and may still be executing on workers. Reads keep serving
	// the prior data until the caller promotes.
	stateWriting

	// statePromoted: the generation has been promoted; the read source
	// now points at the former write target. The target must be rotated
	// before the next generation starts.
	statePromoted
)

func (s writeState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateWriting:
		return "writing"
	case statePromoted:
		return "promoted"
	}
	return "unknown"
}

// Handle tracks where one named image's data currently lives on disk and
// hands out the block instructions that move it. It is a single-threaded
// state container driven by one coordinating caller; the concurrency it
// supports lives across the workers executing the emitted instructions,
// and its safety guarantee is purely file-level separation: a write
// generation never targets the location currently serving reads.
//
// The caller-driven protocol per generation is
//
//	NewWriteTarget -> EmitWriteBlock... -> external barrier -> WriteComplete
//
// where the barrier is the distributor's confirmation that every emitted
// write instruction has finished executing. The handle cannot detect that
// itself; calling WriteComplete early produces a partial promoted state.
type Handle struct {
	name string
	dims geom.Vec3
	elem voxel.Type

	// format is the physical layout of this image's storage, fixed by
	// whichever source first established the handle. It is a property of
	// the storage, not of the element type.
	format api.Format

	readSource  string
	writeTarget string

	// tempA and tempB are the two rotating scratch locations the handle
	// owns. writeTarget is always exactly one of them.
	tempA, tempB string

	// newImage is true until the image has been durably established on
	// disk at least once, via an initial source or a completed write.
	newImage bool

	state  writeState
	logger *slog.Logger

	tempDir string
}

func newHandle(name string, dims geom.Vec3, elem voxel.Type, source, tempDir string, logger *slog.Logger) (*Handle, error) {
	if name == "" {
		return nil, Error.New("image name cannot be empty")
	}
	if !dims.Positive() {
		return nil, Error.New("image %q: dimensions %s must be positive", name, dims)
	}
	if !elem.Valid() {
		return nil, Error.New("image %q: invalid element type", name)
	}

	h := &Handle{
		name:     name,
		dims:     dims,
		elem:     elem,
		format:   api.FormatRaw,
		newImage: true,
		logger:   logger,
		tempDir:  tempDir,
	}
	if source != "" {
		h.format = api.FormatOf(source)
		h.setReadSource(source)
	}
	h.createTempNames()

	return h, nil
}

// tempName derives the deterministic path of one temp slot. The flat format
// gets a .raw file, the sequence format a directory, so temp storage always
// matches the format of the original source.
func (h *Handle) tempName(gen int) string {
	base := fmt.Sprintf("%s_%dx%dx%d-%d", h.name, h.dims.X, h.dims.Y, h.dims.Z, gen)
	if h.format == api.FormatRaw {
		base += ".raw"
	}
	return filepath.Join(h.tempDir, base)
}

func (h *Handle) createTempNames() {
	h.tempA = h.tempName(1)
	h.tempB = h.tempName(2)
	h.writeTarget = h.tempA
}

// Name returns the identifier the instruction encoder uses for this image.
func (h *Handle) Name() string { return h.name }

// Dimensions returns the image extent.
func (h *Handle) Dimensions() geom.Vec3 { return h.dims }

// PixelCount returns width*height*depth.
func (h *Handle) PixelCount() int64 { return h.dims.Volume() }

// ElemType returns the pixel element kind.
func (h *Handle) ElemType() voxel.Type { return h.elem }

// ReadSource returns the location the current valid data is read from.
func (h *Handle) ReadSource() string { return h.readSource }

// WriteTarget returns the location the next write generation persists to.
func (h *Handle) WriteTarget() string { return h.writeTarget }

// Format returns the physical storage layout of this image.
func (h *Handle) Format() api.Format { return h.format }

// IsRaw reports whether the image is stored in the flat binary layout.
func (h *Handle) IsRaw() bool { return h.format == api.FormatRaw }

// IsSequence reports whether the image is stored as a slice sequence.
func (h *Handle) IsSequence() bool { return h.format == api.FormatSequence }

// SavedToTemp reports whether reads are currently served from one of the
// handle's own temp slots rather than an external source file.
func (h *Handle) SavedToTemp() bool {
	return h.readSource == h.tempA || h.readSource == h.tempB
}

// IsSavedToDisk reports whether the image has durable on-disk data.
func (h *Handle) IsSavedToDisk() bool { return !h.newImage }

// setReadSource rebinds the location reads are served from. It never deletes
// the previous source; ownership of non-temp files stays with the caller.
// Binding any non-empty path marks the image as durably saved.
func (h *Handle) setReadSource(path string) {
	h.readSource = path
	if path != "" {
		h.newImage = false
	}
}

// EmitReadBlock produces the instruction that loads the sub-region
// [filePos, filePos+blockSize) of the image into a worker's local buffer.
//
// If dataNeeded is false the block is an output-only operand and the
// instruction merely allocates a zeroed buffer, so no bytes are transferred
// when it executes. The same applies while the image has no durable data
// yet. EmitReadBlock is deterministic and never mutates handle state.
func (h *Handle) EmitReadBlock(filePos, blockSize geom.Vec3, dataNeeded bool) (api.Instruction, error) {
	b := geom.Block{Pos: filePos, Size: blockSize}
	if !b.In(h.dims) {
		return api.Instruction{}, Error.New("image %q: block %s outside image %s", h.name, b, h.dims)
	}

	if !dataNeeded || !h.IsSavedToDisk() {
		return api.Instruction{
			Op:        api.OpAllocBlock,
			Image:     h.name,
			Elem:      h.elem,
			BlockSize: blockSize,
		}, nil
	}

	return api.Instruction{
		Op:        api.OpReadBlock,
		Image:     h.name,
		Elem:      h.elem,
		Path:      h.readSource,
		Format:    h.format,
		Dims:      h.dims,
		FilePos:   filePos,
		BlockSize: blockSize,
	}, nil
}

// EmitWriteBlock produces the instruction that persists the sub-region
// [imagePos, imagePos+blockSize) of a worker's local buffer into the image
// at filePos.
//
// With dst empty the destination is the handle's rotating write target and
// the generation is marked as having pending writes; the read source is not
// touched, so readers of the current generation keep reading the prior data.
// A non-empty dst is an explicit external sink (final export) that bypasses
// the rotation protocol entirely.
func (h *Handle) EmitWriteBlock(filePos, imagePos, blockSize geom.Vec3, dst string) (api.Instruction, error) {
	b := geom.Block{Pos: filePos, Size: blockSize}
	if !b.In(h.dims) {
		return api.Instruction{}, Error.New("image %q: block %s outside image %s", h.name, b, h.dims)
	}
	if !imagePos.NonNegative() {
		return api.Instruction{}, Error.New("image %q: negative buffer position %s", h.name, imagePos)
	}

	path := dst
	format := api.FormatOf(dst)
	if dst == "" {
		// Writing into the slot reads are served from would let a
		// worker overwrite bytes another worker still needs.
		if h.writeTarget == h.readSource {
			return api.Instruction{}, ErrProtocol.New(
				"image %q: write target %s aliases read source, rotate with NewWriteTarget first",
				h.name, h.writeTarget)
		}
		path = h.writeTarget
		format = h.format
		h.state = stateWriting
	}

	return api.Instruction{
		Op:        api.OpWriteBlock,
		Image:     h.name,
		Elem:      h.elem,
		Path:      path,
		Format:    format,
		Dims:      h.dims,
		FilePos:   filePos,
		ImagePos:  imagePos,
		BlockSize: blockSize,
	}, nil
}

// WriteComplete promotes the just-written generation: the write target
// becomes the new read source. Call it exactly once per generation, only
// after the distributor has confirmed that every emitted write instruction
// has finished executing.
func (h *Handle) WriteComplete() error {
	if h.state != stateWriting {
		return ErrProtocol.New("image %q: no write generation pending (state %s)", h.name, h.state)
	}

	h.setReadSource(h.writeTarget)
	h.state = statePromoted

	h.logger.Debug("generation promoted", "name", h.name, "source", h.readSource)

	return nil
}

// NewWriteTarget rotates the write target to the other temp slot. Call it
// before starting a generation that reads and writes the same image
// concurrently block by block; after a promotion it is required before any
// further write blocks can be emitted.
func (h *Handle) NewWriteTarget() error {
	if h.state == stateWriting {
		return ErrProtocol.New("image %q: cannot rotate while writes are pending", h.name)
	}

	if h.writeTarget == h.tempA {
		h.writeTarget = h.tempB
	} else {
		h.writeTarget = h.tempA
	}
	h.state = stateIdle

	return nil
}

// EnsureSize declares that subsequent operations treat the image as having
// extent dims. This is a logical reallocation, not a resample: existing temp
// contents are invalidated and the region contents are undefined until
// written. It is only legal while no block work is in flight.
func (h *Handle) EnsureSize(dims geom.Vec3) error {
	if !dims.Positive() {
		return Error.New("image %q: dimensions %s must be positive", h.name, dims)
	}
	if dims == h.dims {
		return nil
	}
	if h.state == stateWriting {
		return ErrProtocol.New("image %q: cannot resize while writes are pending", h.name)
	}

	onA := h.writeTarget == h.tempA
	readTemp := h.SavedToTemp()
	readOnA := h.readSource == h.tempA

	// Temp names embed the extent, so a resize re-derives both slots.
	// Stale artifacts under the old names are dropped; the new locations
	// hold nothing until the next write.
	if err := h.removeTemp(); err != nil {
		return err
	}

	h.dims = dims
	h.createTempNames()
	if !onA {
		h.writeTarget = h.tempB
	}
	if readTemp {
		if readOnA {
			h.setReadSource(h.tempA)
		} else {
			h.setReadSource(h.tempB)
		}
	}

	h.logger.Debug("image resized", "name", h.name, "dims", dims.String())

	return nil
}

// removeTemp deletes the two temp slots. External sources and targets are
// never touched.
func (h *Handle) removeTemp() error {
	return errs.Combine(os.RemoveAll(h.tempA), os.RemoveAll(h.tempB))
}
