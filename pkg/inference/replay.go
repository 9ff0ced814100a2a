package inference

import (
	"context"
	"fmt"
	"io"
)

// Replay is an Engine that plays back a Recording frame by frame.
//
// Its virtual clock advances by the recording stride per frame, so a
// replay produces the same detections regardless of wall time.
type Replay struct {
	rec    *Recording
	next   int
	output []byte
}

// NewReplay returns a Replay positioned before the first frame. Recordings
// from LoadRecording and ParseRecording are already validated; a frame
// whose length does not match the labels fails its Invoke.
func NewReplay(rec *Recording) *Replay {
	return &Replay{
		rec:    rec,
		output: make([]byte, len(rec.Labels)),
	}
}

// Categories implements Engine.
func (r *Replay) Categories() int {
	return len(r.rec.Labels)
}

// Labels returns the category names of the recording.
func (r *Replay) Labels() []string {
	return r.rec.Labels
}

// Invoke implements Engine. It copies the next frame into the output
// buffer, or returns io.EOF after the last one.
func (r *Replay) Invoke(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.next >= len(r.rec.Frames) {
		return io.EOF
	}
	f := r.rec.Frames[r.next]
	if len(f) != len(r.output) {
		return fmt.Errorf("inference: frame %d has %d scores, want %d", r.next, len(f), len(r.output))
	}
	copy(r.output, f)
	r.next++
	return nil
}

// Output implements Engine.
func (r *Replay) Output() []byte {
	return r.output
}

// Frame returns the index of the frame currently in the output buffer,
// or -1 before the first Invoke.
func (r *Replay) Frame() int {
	return r.next - 1
}

// NowMs returns the timestamp of the current frame. Frame i is stamped
// i*Stride().
func (r *Replay) NowMs() uint64 {
	if r.next == 0 {
		return 0
	}
	return uint64(r.next-1) * uint64(r.rec.Stride())
}

// Rewind restarts the playback from the first frame.
func (r *Replay) Rewind() {
	r.next = 0
	clear(r.output)
}
