package eventlog

import (
	"bytes"
	"sort"
	"strings"
)

// memoryBackend is a sorted-on-read map. Locking is done by Log.
type memoryBackend struct {
	data map[string][]byte
}

// NewMemory returns a Log that keeps events in memory. It is intended
// for tests and dry runs.
func NewMemory() *Log {
	return newLog(&memoryBackend{data: make(map[string][]byte)})
}

func (m *memoryBackend) get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errNoKey
	}
	return bytes.Clone(v), nil
}

func (m *memoryBackend) batchSet(entries []entry) error {
	for _, e := range entries {
		m.data[string(e.key)] = bytes.Clone(e.value)
	}
	return nil
}

func (m *memoryBackend) batchDelete(keys [][]byte) error {
	for _, k := range keys {
		delete(m.data, string(k))
	}
	return nil
}

func (m *memoryBackend) scan(prefix, start []byte, yield func(entry) bool) error {
	p, s := string(prefix), string(start)
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, p) && k >= s {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !yield(entry{key: []byte(k), value: bytes.Clone(m.data[k])}) {
			return nil
		}
	}
	return nil
}

func (m *memoryBackend) close() error {
	m.data = nil
	return nil
}
