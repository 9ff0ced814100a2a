package eventlog

import (
	"context"
	"encoding/json"
	"io"
)

// ExportJSONL writes every event matching q to w, one JSON object per
// line, and returns the number written.
func ExportJSONL(ctx context.Context, s Store, q Query, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for ev, err := range s.List(ctx, q) {
		if err != nil {
			return n, err
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := enc.Encode(ev); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
