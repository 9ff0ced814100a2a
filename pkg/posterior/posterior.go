package posterior

import (
	"fmt"
	"log/slog"
)

// Handler smooths classifier scores over a sliding window and decides
// when a detection fires.
type Handler struct {
	cfg       Config
	threshold uint32

	// history holds CategoryCount rows of HistoryLength samples, row i at
	// history[i*HistoryLength:(i+1)*HistoryLength]. All rows advance in
	// lockstep, so a single cursor marks the oldest column.
	history []uint8
	cursor  int
	sums    []uint32

	lastDetectionMs uint64
	detected        bool

	logger *slog.Logger
	closed bool
}

// Option configures a Handler.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	maxBytes int
}

// WithLogger sets the logger used for detection and clock warnings.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxHistoryBytes overrides DefaultMaxHistoryBytes. A value <= 0
// removes the limit.
func WithMaxHistoryBytes(n int) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// New validates cfg and allocates a zeroed history. On error nothing is
// allocated and the returned Handler is nil.
func New(cfg Config, opts ...Option) (*Handler, error) {
	o := options{maxBytes: DefaultMaxHistoryBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n, err := cfg.cells(o.maxBytes)
	if err != nil {
		return nil, err
	}

	return &Handler{
		cfg:       cfg,
		threshold: cfg.ScaledThreshold(),
		history:   make([]uint8, n),
		sums:      make([]uint32, cfg.CategoryCount),
		logger:    o.logger,
	}, nil
}

// Handle feeds one score vector taken at timeMs and returns the category
// with the highest moving sum and whether a detection fired.
//
// top is reported on every call; callers should act on it only when
// triggered is true.
func (h *Handler) Handle(scores []byte, timeMs uint64) (top int, triggered bool, err error) {
	if h.closed {
		return 0, false, ErrClosed
	}
	if scores == nil {
		return 0, false, fmt.Errorf("%w: nil scores", ErrInvalidArgument)
	}
	if len(scores) != len(h.sums) {
		return 0, false, fmt.Errorf("%w: got %d scores, want %d",
			ErrInvalidArgument, len(scores), len(h.sums))
	}

	n := int(h.cfg.HistoryLength)
	for i, s := range scores {
		slot := i*n + h.cursor
		h.sums[i] = h.sums[i] - uint32(h.history[slot]) + uint32(s)
		h.history[slot] = s
	}
	h.cursor++
	if h.cursor == n {
		h.cursor = 0
	}

	for i := 1; i < len(h.sums); i++ {
		if h.sums[i] > h.sums[top] {
			top = i
		}
	}

	if h.sums[top] > h.threshold && h.suppressionElapsed(timeMs) {
		triggered = true
		h.lastDetectionMs = timeMs
		h.detected = true
		h.logger.Debug("posterior: detection",
			"category", top, "sum", h.sums[top], "threshold", h.threshold, "time_ms", timeMs)
	}
	return top, triggered, nil
}

func (h *Handler) suppressionElapsed(timeMs uint64) bool {
	if !h.detected {
		return true
	}
	if timeMs < h.lastDetectionMs {
		h.logger.Warn("posterior: timestamp went backwards",
			"time_ms", timeMs, "last_detection_ms", h.lastDetectionMs)
		return false
	}
	return timeMs-h.lastDetectionMs > uint64(h.cfg.SuppressionMs)
}

// Config returns the configuration the handler was built with.
func (h *Handler) Config() Config {
	return h.cfg
}

// ScaledThreshold returns the bound moving sums are compared against.
func (h *Handler) ScaledThreshold() uint32 {
	return h.threshold
}

// MovingSum returns the current window sum of category i. It returns 0
// for an out-of-range index or a closed handler.
func (h *Handler) MovingSum(i int) uint32 {
	if i < 0 || i >= len(h.sums) {
		return 0
	}
	return h.sums[i]
}

// MovingSums appends all window sums to dst and returns the result.
func (h *Handler) MovingSums(dst []uint32) []uint32 {
	return append(dst, h.sums...)
}

// LastDetection returns the timestamp of the most recent detection.
// ok is false if nothing has fired since construction or Reset.
func (h *Handler) LastDetection() (timeMs uint64, ok bool) {
	return h.lastDetectionMs, h.detected
}

// Reset clears the history, the sums and the suppression state.
func (h *Handler) Reset() {
	clear(h.history)
	clear(h.sums)
	h.cursor = 0
	h.lastDetectionMs = 0
	h.detected = false
}

// Close releases the buffers. It is safe to call more than once.
func (h *Handler) Close() error {
	h.history = nil
	h.sums = nil
	h.closed = true
	return nil
}
