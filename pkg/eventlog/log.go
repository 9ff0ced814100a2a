package eventlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// entry is a raw key-value pair.
type entry struct {
	key   []byte
	value []byte
}

// backend is the raw storage underneath a Log.
type backend interface {
	get(key []byte) ([]byte, error) // errNoKey if absent
	batchSet(entries []entry) error
	batchDelete(keys [][]byte) error
	// scan yields entries with prefix, starting at the first key >= start,
	// in lexicographic order, until yield returns false.
	scan(prefix, start []byte, yield func(entry) bool) error
	close() error
}

var errNoKey = errors.New("eventlog: no such key")

// Log is a Store on top of a backend.
type Log struct {
	mu     sync.RWMutex
	b      backend
	closed bool
}

var _ Store = (*Log)(nil)

func newLog(b backend) *Log {
	return &Log{b: b}
}

// Append implements Store.
func (l *Log) Append(_ context.Context, ev kws.Event) error {
	if ev.ID == "" {
		return errors.New("eventlog: event has no ID")
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	k := eventKey(ev)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	// Re-appending an ID moves it; drop the old position first.
	if old, err := l.b.get(idKey(ev.ID)); err == nil && !bytes.Equal(old, k) {
		if err := l.b.batchDelete([][]byte{old}); err != nil {
			return err
		}
	}
	return l.b.batchSet([]entry{
		{key: k, value: data},
		{key: idKey(ev.ID), value: k},
	})
}

// Get implements Store.
func (l *Log) Get(_ context.Context, id string) (kws.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return kws.Event{}, ErrClosed
	}
	k, err := l.b.get(idKey(id))
	if errors.Is(err, errNoKey) {
		return kws.Event{}, ErrNotFound
	}
	if err != nil {
		return kws.Event{}, err
	}
	data, err := l.b.get(k)
	if errors.Is(err, errNoKey) {
		return kws.Event{}, ErrNotFound
	}
	if err != nil {
		return kws.Event{}, err
	}
	return decodeEvent(data)
}

// List implements Store. A malformed Query.Expr is reported as the first
// yielded error. The Log is read-locked while iterating, so the loop body
// must not call Append or Delete.
func (l *Log) List(_ context.Context, q Query) iter.Seq2[kws.Event, error] {
	return func(yield func(kws.Event, error) bool) {
		m, err := compileQuery(q)
		if err != nil {
			yield(kws.Event{}, err)
			return
		}

		l.mu.RLock()
		defer l.mu.RUnlock()
		if l.closed {
			yield(kws.Event{}, ErrClosed)
			return
		}

		start := []byte(eventPrefix)
		if !q.Since.IsZero() {
			start = timeKey(q.Since)
		}
		n := 0
		stopped := false
		err = l.b.scan([]byte(eventPrefix), start, func(e entry) bool {
			ev, err := decodeEvent(e.value)
			if err != nil {
				if !yield(kws.Event{}, err) {
					stopped = true
					return false
				}
				return true
			}
			if m.beyond(ev) {
				return false
			}
			ok, err := m.match(ev)
			if err != nil {
				if !yield(kws.Event{}, err) {
					stopped = true
					return false
				}
				return true
			}
			if !ok {
				return true
			}
			n++
			if !yield(ev, nil) {
				stopped = true
				return false
			}
			return q.Limit <= 0 || n < q.Limit
		})
		if err != nil && !stopped {
			yield(kws.Event{}, fmt.Errorf("eventlog: scan: %w", err))
		}
	}
}

// Delete implements Store.
func (l *Log) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	k, err := l.b.get(idKey(id))
	if errors.Is(err, errNoKey) {
		return nil
	}
	if err != nil {
		return err
	}
	return l.b.batchDelete([][]byte{k, idKey(id)})
}

// Close implements Store.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.b.close()
}
