// Package kws runs the keyword-spotting decision loop: it pulls score
// vectors from an inference engine, smooths them with a posterior
// handler, and hands filtered detections to a Dispatcher.
//
// # Pipeline
//
//	Engine.Invoke → Engine.Output → posterior.Handler.Handle → Filter → Dispatcher
//
// A Spotter drives all stages from the goroutine that calls Run or Step,
// so the handler is never accessed concurrently.
package kws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OscarSR27/ESDML-Lab2/pkg/inference"
	"github.com/OscarSR27/ESDML-Lab2/pkg/posterior"
)

// Config is a spotter profile.
type Config struct {
	Posterior posterior.Config `yaml:"posterior" json:"posterior"`

	// Labels names the categories. Empty means ask the engine.
	Labels []string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Ignore lists labels (or indices) whose detections are dropped.
	// Nil selects DefaultIgnore(Labels); an empty list drops nothing.
	Ignore []string `yaml:"ignore,omitempty" json:"ignore,omitzero"`
}

// configYAML is the YAML shape of Config. Ignore is a pointer so that an
// empty list is written as "ignore: []" while nil is left out.
type configYAML struct {
	Posterior posterior.Config `yaml:"posterior"`
	Labels    []string         `yaml:"labels,omitempty"`
	Ignore    *[]string        `yaml:"ignore,omitempty"`
}

// MarshalYAML keeps an explicit empty Ignore list across a save and load.
func (c Config) MarshalYAML() (any, error) {
	out := configYAML{Posterior: c.Posterior, Labels: c.Labels}
	if c.Ignore != nil {
		out.Ignore = &c.Ignore
	}
	return out, nil
}

// DefaultConfig returns the parameters of the reference micro-speech
// deployment: 1 s of 20 ms frames at a per-frame threshold of 200.
func DefaultConfig() Config {
	return Config{
		Posterior: posterior.Config{
			HistoryLength:    50,
			TriggerThreshold: 200,
			SuppressionMs:    1500,
		},
	}
}

// Frame is the outcome of one Step.
type Frame struct {
	Top       int
	Label     string
	Score     uint32
	TimeMs    uint64
	Triggered bool

	// Event is set when the detection passed the filter and was
	// dispatched.
	Event *Event
}

// Stats counts what a Spotter has processed.
type Stats struct {
	Frames         int `json:"frames" yaml:"frames"`
	Triggers       int `json:"triggers" yaml:"triggers"`
	Ignored        int `json:"ignored" yaml:"ignored"`
	Dispatched     int `json:"dispatched" yaml:"dispatched"`
	DispatchErrors int `json:"dispatch_errors" yaml:"dispatch_errors"`
}

// Option configures a Spotter.
type Option func(*Spotter)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(s *Spotter) { s.clock = c }
}

// WithEpoch sets the wall time that clock reading 0 corresponds to.
func WithEpoch(t time.Time) Option {
	return func(s *Spotter) { s.epoch = t }
}

// WithDispatcher sets where detections go. Without one they are only
// counted.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Spotter) { s.dispatcher = d }
}

// WithObserver registers a callback invoked after every frame.
func WithObserver(fn func(Frame)) Option {
	return func(s *Spotter) { s.observer = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Spotter) { s.logger = l }
}

// Spotter owns a posterior handler and feeds it from an engine.
type Spotter struct {
	engine     inference.Engine
	handler    *posterior.Handler
	filter     *Filter
	clock      Clock
	epoch      time.Time
	dispatcher Dispatcher
	observer   func(Frame)
	logger     *slog.Logger
	stats      Stats
}

// labeled is implemented by engines that know their category names.
type labeled interface {
	Labels() []string
}

// New builds a Spotter for engine. A zero Posterior.CategoryCount is
// taken from the engine; a non-zero one must match it.
func New(cfg Config, engine inference.Engine, opts ...Option) (*Spotter, error) {
	if engine == nil {
		return nil, errors.New("kws: nil engine")
	}
	categories := uint32(engine.Categories())
	if cfg.Posterior.CategoryCount == 0 {
		cfg.Posterior.CategoryCount = categories
	} else if cfg.Posterior.CategoryCount != categories {
		return nil, fmt.Errorf("kws: %w: profile has %d categories, engine has %d",
			posterior.ErrInvalidArgument, cfg.Posterior.CategoryCount, categories)
	}

	labels := cfg.Labels
	if len(labels) == 0 {
		if l, ok := engine.(labeled); ok {
			labels = l.Labels()
		}
	}
	ignore := cfg.Ignore
	if ignore == nil {
		ignore = DefaultIgnore(labels)
	}

	s := &Spotter{
		engine: engine,
		filter: NewFilter(labels, ignore),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		if c, ok := engine.(Clock); ok {
			s.clock = c
		} else {
			mc := NewMonotonicClock()
			s.clock = mc
			if s.epoch.IsZero() {
				s.epoch = mc.Start()
			}
		}
	}
	if s.epoch.IsZero() {
		s.epoch = time.Now()
	}

	h, err := posterior.New(cfg.Posterior, posterior.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("kws: %w", err)
	}
	s.handler = h
	return s, nil
}

// Step runs one inference and one decision. It returns io.EOF when the
// engine is exhausted.
func (s *Spotter) Step(ctx context.Context) (Frame, error) {
	if err := s.engine.Invoke(ctx); err != nil {
		return Frame{}, err
	}
	now := s.clock.NowMs()
	top, triggered, err := s.handler.Handle(s.engine.Output(), now)
	if err != nil {
		return Frame{}, fmt.Errorf("kws: handle frame %d: %w", s.stats.Frames, err)
	}
	s.stats.Frames++

	f := Frame{
		Top:       top,
		Label:     s.filter.Label(top),
		Score:     s.handler.MovingSum(top),
		TimeMs:    now,
		Triggered: triggered,
	}
	if triggered {
		s.stats.Triggers++
		if s.filter.Ignored(top) {
			s.stats.Ignored++
			s.logger.Debug("kws: ignored detection", "label", f.Label, "score", f.Score, "time_ms", now)
		} else {
			ev := newEvent(top, f.Label, f.Score, now, s.epoch.Add(time.Duration(now)*time.Millisecond))
			f.Event = &ev
			s.dispatch(ctx, ev)
		}
	}
	if s.observer != nil {
		s.observer(f)
	}
	return f, nil
}

func (s *Spotter) dispatch(ctx context.Context, ev Event) {
	s.logger.Info("kws: keyword detected", "label", ev.Label, "category", ev.Category,
		"score", ev.Score, "time_ms", ev.TimeMs, "id", ev.ID)
	if s.dispatcher == nil {
		s.stats.Dispatched++
		return
	}
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		s.stats.DispatchErrors++
		s.logger.Warn("kws: dispatch failed", "id", ev.ID, "error", err)
		return
	}
	s.stats.Dispatched++
}

// Run steps until the engine is exhausted or ctx is done. Exhaustion is
// a clean stop and returns a nil error.
func (s *Spotter) Run(ctx context.Context) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return s.stats, err
		}
		if _, err := s.Step(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return s.stats, nil
			}
			return s.stats, err
		}
	}
}

// Stats returns the counters accumulated so far.
func (s *Spotter) Stats() Stats {
	return s.stats
}

// Filter returns the label filter in use.
func (s *Spotter) Filter() *Filter {
	return s.filter
}

// Handler exposes the underlying posterior handler for inspection.
func (s *Spotter) Handler() *posterior.Handler {
	return s.handler
}

// Close releases the posterior handler.
func (s *Spotter) Close() error {
	return s.handler.Close()
}
