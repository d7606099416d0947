// Package pi2 provides storage handles for out-of-core image processing: an
// image too large for memory is represented by a handle to on-disk data and
// manipulated through instructions that read and write rectangular
// sub-blocks.
//
// A handle double-buffers its data between two temporary locations so that a
// write generation never targets the location concurrently serving reads.
// Overlapping block reads and writes from the same generation therefore never
// alias, with no lock manager involved: the caller emits read and write
// instructions, an external distributor executes them on workers, and once
// every write of the generation has finished the caller promotes the written
// data to the new readable state.
package pi2

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"storj.io/common/memory"

	"github.com/habi/pi2/pkg/geom"
	"github.com/habi/pi2/pkg/voxel"
)

// Session owns every image handle of one processing run. It maps image names
// to handles and owns the scratch directory their temporary storage lives in.
// Construct isolated sessions rather than sharing one across unrelated runs.
type Session struct {
	cfg    *Config
	logger *slog.Logger

	// tempDir is the session-private scratch directory. Removed, with
	// everything in it, when the session closes.
	tempDir string

	// mu guards images. Handles themselves are single-caller state
	// containers and are not further synchronized.
	mu     sync.Mutex
	images map[string]*Handle
}

// NewSession validates the configuration and creates the session scratch
// directory.
func NewSession(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parent := cfg.TempDir
	if parent == "" {
		parent = os.TempDir()
	}
	tempDir := filepath.Join(parent, "pi2-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, Error.Wrap(err)
	}

	logger.Debug("session created", "tempdir", tempDir)

	return &Session{
		cfg:     cfg,
		logger:  logger,
		tempDir: tempDir,
		images:  make(map[string]*Handle),
	}, nil
}

// BlockSize is the configured target size of one distributed block.
func (s *Session) BlockSize() memory.Size {
	return s.cfg.BlockSize
}

// Workers is the configured local runner concurrency.
func (s *Session) Workers() int {
	return s.cfg.Workers
}

// Create registers a transient image: one with no on-disk data yet, such as
// an intermediate computation result. Its temporary storage uses the flat
// raw format.
func (s *Session) Create(name string, dims geom.Vec3, elem voxel.Type) (*Handle, error) {
	return s.create(name, dims, elem, "")
}

// CreateFrom registers an image backed by an existing file or slice
// directory. The temporary storage format is derived from the source path.
// The source is never deleted by the session.
func (s *Session) CreateFrom(name string, dims geom.Vec3, elem voxel.Type, source string) (*Handle, error) {
	if source == "" {
		return nil, Error.New("image %q: source path cannot be empty", name)
	}
	return s.create(name, dims, elem, source)
}

func (s *Session) create(name string, dims geom.Vec3, elem voxel.Type, source string) (*Handle, error) {
	h, err := newHandle(name, dims, elem, source, s.tempDir, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[name]; ok {
		return nil, Error.New("image %q already exists in this session", name)
	}
	s.images[name] = h

	s.logger.Debug("image registered",
		"name", name, "dims", dims.String(), "elem", elem.String(), "source", source)

	return h, nil
}

// Get looks up a handle by image name.
func (s *Session) Get(name string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.images[name]
	return h, ok
}

// Remove drops a handle from the session and deletes its temporary storage.
// Caller-provided source files are left alone.
func (s *Session) Remove(name string) error {
	s.mu.Lock()
	h, ok := s.images[name]
	delete(s.images, name)
	s.mu.Unlock()

	if !ok {
		return Error.New("image %q not found", name)
	}
	return h.removeTemp()
}

// Close tears down every handle and removes the session scratch directory.
func (s *Session) Close() error {
	s.mu.Lock()
	images := s.images
	s.images = make(map[string]*Handle)
	s.mu.Unlock()

	var group errs.Group
	for _, h := range images {
		group.Add(h.removeTemp())
	}
	group.Add(os.RemoveAll(s.tempDir))

	s.logger.Debug("session closed", "tempdir", s.tempDir)

	return group.Err()
}
