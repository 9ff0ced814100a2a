package posterior

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrInvalidArgument is returned for a malformed Config or a score
	// vector that does not match the configured category count.
	ErrInvalidArgument = errors.New("posterior: invalid argument")

	// ErrOutOfMemory is returned when the history buffer cannot be
	// allocated within the configured limit.
	ErrOutOfMemory = errors.New("posterior: out of memory")

	// ErrClosed is returned by Handle after Close.
	ErrClosed = errors.New("posterior: handler closed")
)

// MaxHistoryLength is the largest window for which 255*HistoryLength
// still fits in the uint32 moving sums.
const MaxHistoryLength = math.MaxUint32 / math.MaxUint8

// DefaultMaxHistoryBytes caps the history buffer at 64 MiB.
const DefaultMaxHistoryBytes = 64 << 20

// Config holds the construction parameters of a Handler.
type Config struct {
	// HistoryLength is the number of frames in the smoothing window.
	HistoryLength uint32 `yaml:"history_length" json:"history_length" msgpack:"history_length"`

	// TriggerThreshold is the per-frame threshold (0-255). The handler
	// compares moving sums against TriggerThreshold*HistoryLength.
	TriggerThreshold uint8 `yaml:"trigger_threshold" json:"trigger_threshold" msgpack:"trigger_threshold"`

	// SuppressionMs is the minimum spacing between two detections.
	SuppressionMs uint32 `yaml:"suppression_ms" json:"suppression_ms" msgpack:"suppression_ms"`

	// CategoryCount is the number of classifier outputs per frame.
	CategoryCount uint32 `yaml:"category_count" json:"category_count" msgpack:"category_count"`
}

// ScaledThreshold returns TriggerThreshold*HistoryLength.
func (c Config) ScaledThreshold() uint32 {
	return uint32(c.TriggerThreshold) * c.HistoryLength
}

// Validate reports whether c describes a usable Handler.
func (c Config) Validate() error {
	if c.HistoryLength == 0 {
		return fmt.Errorf("%w: history length must be positive", ErrInvalidArgument)
	}
	if c.CategoryCount == 0 {
		return fmt.Errorf("%w: category count must be positive", ErrInvalidArgument)
	}
	if c.HistoryLength > MaxHistoryLength {
		return fmt.Errorf("%w: history length %d exceeds %d", ErrInvalidArgument, c.HistoryLength, MaxHistoryLength)
	}
	return nil
}

// cells returns CategoryCount*HistoryLength, or an ErrOutOfMemory error
// when the product overflows int or exceeds limit.
func (c Config) cells(limit int) (int, error) {
	n := uint64(c.CategoryCount) * uint64(c.HistoryLength)
	if n > math.MaxInt || (limit > 0 && n > uint64(limit)) {
		return 0, fmt.Errorf("%w: %d x %d history exceeds %d bytes",
			ErrOutOfMemory, c.CategoryCount, c.HistoryLength, limit)
	}
	return int(n), nil
}
