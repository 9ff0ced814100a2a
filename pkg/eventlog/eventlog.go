// Package eventlog persists keyword detections so they can be listed,
// filtered and exported after a run.
//
// Events are msgpack-encoded and stored under chronological keys:
//
//	evt:<unix ms, 16 digits>:<id>  → event
//	id:<id>                        → evt key
//
// The package includes a BadgerDB-backed Log for production use and an
// in-memory backend for tests.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no event has the requested ID.
	ErrNotFound = errors.New("eventlog: not found")

	// ErrClosed is returned by operations on a closed Log.
	ErrClosed = errors.New("eventlog: closed")
)

// Store is the interface for a detection history.
type Store interface {
	// Append stores ev. A zero At is replaced by the current time and an
	// empty ID is rejected.
	Append(ctx context.Context, ev kws.Event) error

	// Get returns the event with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (kws.Event, error)

	// List iterates over matching events in chronological order.
	List(ctx context.Context, q Query) iter.Seq2[kws.Event, error]

	// Delete removes an event. No error if it does not exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

const (
	eventPrefix = "evt:"
	idPrefix    = "id:"
	msDigits    = 16
)

// eventKey builds the chronological key for ev.
func eventKey(ev kws.Event) []byte {
	return append(timeKey(ev.At), ev.ID...)
}

// timeKey returns the "evt:<ms>:" prefix of events recorded at t.
func timeKey(t time.Time) []byte {
	ms := max(t.UnixMilli(), 0)
	k := make([]byte, 0, len(eventPrefix)+msDigits+1+36)
	k = append(k, eventPrefix...)
	s := strconv.FormatInt(ms, 10)
	for range msDigits - len(s) {
		k = append(k, '0')
	}
	k = append(k, s...)
	return append(k, ':')
}

func idKey(id string) []byte {
	return append([]byte(idPrefix), id...)
}

func encodeEvent(ev kws.Event) ([]byte, error) {
	data, err := msgpack.Marshal(&ev)
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode %s: %w", ev.ID, err)
	}
	return data, nil
}

func decodeEvent(data []byte) (kws.Event, error) {
	var ev kws.Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return kws.Event{}, fmt.Errorf("eventlog: decode: %w", err)
	}
	return ev, nil
}
