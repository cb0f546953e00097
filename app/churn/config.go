package churn

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/math"
	"github.com/usnistgov/rcuguard/core/nnduration"
	"github.com/xeipuuv/gojsonschema"
	"github.com/zyedidia/generic"
	"go.uber.org/multierr"
)

// Allocator choices.
const (
	AllocatorHeap = "heap"
	AllocatorPool = "pool"
)

// Mutex choices.
const (
	MutexPlain = "plain"
	MutexTimed = "timed"
)

// Defaults.
const (
	DefaultReaders    = 4
	DefaultHoldTime   = 10 * time.Millisecond
	DefaultDuration   = time.Second
	DefaultMaxSize    = 1024
	DefaultEraseRatio = 0.5
	DefaultBatchSize  = 8
	MaxBatchSize      = 1024
)

//go:embed config.schema.json
var schemaJSON []byte

// Schema returns the JSON schema of Config.
func Schema() []byte {
	return schemaJSON
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// SchemaError indicates that a configuration does not conform to the JSON schema.
type SchemaError struct {
	*gojsonschema.Result
}

func (e SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprint(&b, "configuration failed schema validation:")
	for _, desc := range e.Result.Errors() {
		fmt.Fprint(&b, "\n- ", desc)
	}
	return b.String()
}

// Config contains Runner configuration.
// Zero values select defaults.
type Config struct {
	Readers        int                     `json:"readers,omitempty"`
	Writers        int                     `json:"writers,omitempty"`
	Holders        int                     `json:"holders,omitempty"`
	HoldTime       nnduration.Milliseconds `json:"holdTime,omitempty"`
	Duration       nnduration.Milliseconds `json:"duration,omitempty"`
	ReportInterval nnduration.Milliseconds `json:"reportInterval,omitempty"`
	InitialSize    int                     `json:"initialSize,omitempty"`
	MaxSize        int                     `json:"maxSize,omitempty"`
	EraseRatio     float64                 `json:"eraseRatio,omitempty"`
	BatchSize      int                     `json:"batchSize,omitempty"`
	Allocator      string                  `json:"allocator,omitempty"`
	Mutex          string                  `json:"mutex,omitempty"`
	Seed           uint64                  `json:"seed,omitempty"`
}

func (cfg *Config) checkSchema() error {
	schema, e := compiledSchema()
	if e != nil {
		return fmt.Errorf("schema: %w", e)
	}
	result, e := schema.Validate(gojsonschema.NewGoLoader(cfg))
	if e != nil {
		return e
	}
	if !result.Valid() {
		return SchemaError{result}
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Readers == 0 {
		cfg.Readers = DefaultReaders
	}
	cfg.Writers = generic.Max(1, cfg.Writers)
	if cfg.HoldTime == 0 {
		cfg.HoldTime = nnduration.Milliseconds(DefaultHoldTime.Milliseconds())
	}
	if cfg.Duration == 0 {
		cfg.Duration = nnduration.Milliseconds(DefaultDuration.Milliseconds())
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = math.MaxInt(DefaultMaxSize, cfg.InitialSize)
	}
	if cfg.EraseRatio == 0 {
		cfg.EraseRatio = DefaultEraseRatio
	}
	cfg.EraseRatio = generic.Clamp(cfg.EraseRatio, 0, 1)
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = math.MinInt(math.MaxInt(1, cfg.BatchSize), MaxBatchSize)
	if cfg.Allocator == "" {
		cfg.Allocator = AllocatorPool
	}
	if cfg.Mutex == "" {
		cfg.Mutex = MutexPlain
	}
}

// Validate applies defaults and validates the configuration.
func (cfg *Config) Validate() error {
	if e := cfg.checkSchema(); e != nil {
		return e
	}
	cfg.applyDefaults()

	errs := []error{}
	if cfg.MaxSize < cfg.InitialSize {
		errs = append(errs, fmt.Errorf("maxSize %d is less than initialSize %d", cfg.MaxSize, cfg.InitialSize))
	}
	switch cfg.Allocator {
	case AllocatorHeap, AllocatorPool:
	default:
		errs = append(errs, fmt.Errorf("unknown allocator %q", cfg.Allocator))
	}
	switch cfg.Mutex {
	case MutexPlain, MutexTimed:
	default:
		errs = append(errs, fmt.Errorf("unknown mutex %q", cfg.Mutex))
	}
	if cfg.Holders > 0 && cfg.HoldTime.Duration() >= cfg.Duration.Duration() {
		errs = append(errs, errors.New("holdTime must be shorter than duration"))
	}
	return multierr.Combine(errs...)
}
