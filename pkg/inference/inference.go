// Package inference defines the boundary between the keyword spotter and
// the neural network runtime that produces per-frame category scores.
//
// A runtime exposes a quantized output tensor with one unsigned byte per
// category. The spotter calls Invoke once per frame and reads Output only
// after Invoke has returned.
//
// Recorded score streams can be replayed through the same interface with
// Replay, which makes detection runs reproducible without a model.
package inference

import (
	"context"
)

// Engine is a classifier runtime.
type Engine interface {
	// Categories returns the length of the output tensor.
	Categories() int

	// Invoke runs inference on the next input frame. It returns io.EOF
	// when the input source is exhausted.
	Invoke(ctx context.Context) error

	// Output returns the scores of the last Invoke. The slice is owned by
	// the engine and is only valid until the next Invoke.
	Output() []byte
}
