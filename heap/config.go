package heap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/osmem/internal/format"
)

// ZeroMapPageSize makes Calloc map directly once the aligned block reaches
// the provider's page size, instead of Config.MapThreshold.
const ZeroMapPageSize = -1

// Config holds the heap's tunables. Zero fields take DefaultConfig values.
type Config struct {
	// MapThreshold is the aligned block size at or above which Alloc and
	// Realloc bypass the arena.
	MapThreshold int

	// ZeroMapThreshold is the same cutoff for Calloc. It defaults to
	// MapThreshold so both paths route identically; ZeroMapPageSize selects
	// the page size instead.
	ZeroMapThreshold int

	// InitialChunk is how much the arena grows on the first small request.
	InitialChunk int

	// Logger receives debug records and provider failures.
	Logger *slog.Logger

	// OnFatal is called with a *ProviderError before it is returned.
	OnFatal func(error)
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{
	MapThreshold:     format.MapThreshold,
	ZeroMapThreshold: format.MapThreshold,
	InitialChunk:     format.MapThreshold,
}

// DefaultFatalHandler prints the error and terminates the process.
func DefaultFatalHandler(err error) {
	fmt.Fprintf(os.Stderr, "osmem: fatal: %v\n", err)
	os.Exit(1)
}

func (c Config) withDefaults() Config {
	if c.MapThreshold <= 0 {
		c.MapThreshold = DefaultConfig.MapThreshold
	}
	if c.ZeroMapThreshold == 0 {
		c.ZeroMapThreshold = c.MapThreshold
	}
	if c.InitialChunk <= 0 {
		c.InitialChunk = DefaultConfig.InitialChunk
	}
	c.InitialChunk = max(format.Align8(c.InitialChunk), format.MinBlockSize)
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	if c.OnFatal == nil {
		c.OnFatal = DefaultFatalHandler
	}
	return c
}
