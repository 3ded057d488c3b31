package slab

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"

	"github.com/joshuapare/slabkit/internal/mmap"
	"github.com/joshuapare/slabkit/slab/arena"
	"github.com/joshuapare/slabkit/slab/pool"
)

// EnvPrefix is the prefix of every environment variable LoadConfig reads,
// e.g. SLABKIT_SLOTS_PER_CHUNK.
const EnvPrefix = "SLABKIT"

// Config configures a Registry.
type Config struct {
	SlotsPerChunk  int    `envconfig:"SLOTS_PER_CHUNK" default:"256"`
	MaxChunks      int    `envconfig:"MAX_CHUNKS" default:"0"`
	FreePolicy     string `envconfig:"FREE_POLICY" default:"rebind"`
	Checked        bool   `envconfig:"CHECKED" default:"false"`
	LazyPools      bool   `envconfig:"LAZY_POOLS" default:"false"`
	FlushBatch     int    `envconfig:"FLUSH_BATCH" default:"1024"`
	QueueLimit     int    `envconfig:"QUEUE_LIMIT" default:"0"`
	ArenaChunkSize int    `envconfig:"ARENA_CHUNK_SIZE" default:"65536"`
	ArenaMaxChunks int    `envconfig:"ARENA_MAX_CHUNKS" default:"1"`
	Backing        string `envconfig:"BACKING" default:"heap"`

	// Logger overrides logger.L for this registry.
	Logger *slog.Logger `ignored:"true"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		SlotsPerChunk:  pool.DefaultSlotsPerChunk,
		FreePolicy:     pool.FreeRebind.String(),
		FlushBatch:     1024,
		ArenaChunkSize: arena.DefaultChunkSize,
		ArenaMaxChunks: 1,
		Backing:        mmap.Heap.String(),
	}
}

// LoadConfig reads the configuration from SLABKIT_* environment variables,
// falling back to the defaults for anything unset.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs *multierror.Error
	fail := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.SlotsPerChunk < 2 {
		fail("slots per chunk %d < 2", c.SlotsPerChunk)
	}
	if c.MaxChunks < 0 {
		fail("max chunks %d < 0", c.MaxChunks)
	}
	if _, err := pool.ParsePolicy(c.FreePolicy); err != nil {
		fail("%v", err)
	}
	if c.FlushBatch <= 0 {
		fail("flush batch %d <= 0", c.FlushBatch)
	}
	if c.QueueLimit < 0 {
		fail("queue limit %d < 0", c.QueueLimit)
	}
	if c.ArenaChunkSize <= 0 {
		fail("arena chunk size %d <= 0", c.ArenaChunkSize)
	}
	if c.ArenaMaxChunks < -1 {
		fail("arena max chunks %d < -1", c.ArenaMaxChunks)
	}
	if _, err := mmap.ParseBacking(c.Backing); err != nil {
		fail("%v", err)
	}
	return errs.ErrorOrNil()
}

func (c Config) poolOptions(log *slog.Logger) pool.Options {
	policy, _ := pool.ParsePolicy(c.FreePolicy)
	backing, _ := mmap.ParseBacking(c.Backing)
	return pool.Options{
		SlotsPerChunk: c.SlotsPerChunk,
		MaxChunks:     c.MaxChunks,
		Policy:        policy,
		Checked:       c.Checked,
		Backing:       backing,
		Logger:        log,
	}
}

func (c Config) arenaOptions() arena.Options {
	backing, _ := mmap.ParseBacking(c.Backing)
	return arena.Options{
		ChunkSize: c.ArenaChunkSize,
		MaxChunks: c.ArenaMaxChunks,
		Backing:   backing,
	}
}
