package pi2

import (
	"log/slog"
	"runtime"

	"storj.io/common/memory"
)

const defaultBlockSize = 64 * memory.MiB

// Config holds the infrastructure settings for a processing session.
type Config struct {
	// TempDir is the directory under which the session creates its
	// private scratch directory for temporary image storage.
	// If empty, the operating system's temp directory is used.
	TempDir string

	// Logger receives structured progress and teardown logs.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// BlockSize is the target size (in bytes) of one distributed block.
	// Distributors use it to decide how finely to partition an image.
	//
	// If 0, it defaults to 64MiB.
	BlockSize memory.Size

	// Workers is the number of block jobs the local runner executes
	// concurrently. If 0, it defaults to the number of CPUs.
	Workers int
}

type Option func(*Config)

// WithTempDir sets the parent directory for session scratch storage.
func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithBlockSize sets the target distributed block size in bytes.
func WithBlockSize(size memory.Size) Option {
	return func(c *Config) {
		c.BlockSize = size
	}
}

// WithWorkers sets the local runner concurrency.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func defaultConfig() *Config {
	return &Config{
		BlockSize: defaultBlockSize,
		Workers:   runtime.NumCPU(),
	}
}

func (cfg *Config) validate() error {
	if cfg.BlockSize <= 0 {
		return Error.New("BlockSize must be greater than 0")
	}

	if cfg.Workers <= 0 {
		return Error.New("Workers must be greater than 0")
	}

	return nil
}
