package kws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a reported keyword detection.
type Event struct {
	ID       string    `json:"id" yaml:"id" msgpack:"id"`
	Category int       `json:"category" yaml:"category" msgpack:"category"`
	Label    string    `json:"label" yaml:"label" msgpack:"label"`
	Score    uint32    `json:"score" yaml:"score" msgpack:"score"`
	TimeMs   uint64    `json:"time_ms" yaml:"time_ms" msgpack:"time_ms"`
	At       time.Time `json:"at" yaml:"at" msgpack:"at"`
}

func newEvent(category int, label string, score uint32, timeMs uint64, at time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Category: category,
		Label:    label,
		Score:    score,
		TimeMs:   timeMs,
		At:       at,
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s (#%d) score=%d at %dms", e.Label, e.Category, e.Score, e.TimeMs)
}

// Dispatcher receives detections that passed the label filter.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, ev Event) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiDispatcher delivers every event to all of its members. Every member
// is called even if an earlier one fails; the errors are joined.
type MultiDispatcher []Dispatcher

// Dispatch implements Dispatcher.
func (m MultiDispatcher) Dispatch(ctx context.Context, ev Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
