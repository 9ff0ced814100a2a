package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// DefaultFrameMs is the frame stride of the usual 1 s / 20 ms
// keyword-spotting front end.
const DefaultFrameMs = 20

// Format is a recording file encoding.
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Recording is a captured stream of classifier outputs.
type Recording struct {
	// Labels names the categories, in output tensor order.
	Labels []string `yaml:"labels" json:"labels" msgpack:"labels"`

	// FrameMs is the time between two frames. Zero means DefaultFrameMs.
	FrameMs uint32 `yaml:"frame_ms,omitempty" json:"frame_ms,omitempty" msgpack:"frame_ms,omitempty"`

	// Frames holds one score vector per inference.
	Frames []Frame `yaml:"frames" json:"frames" msgpack:"frames"`
}

// Frame is one quantized output vector.
type Frame []byte

// MarshalJSON encodes the scores as a number array rather than base64.
func (f Frame) MarshalJSON() ([]byte, error) {
	v := make([]uint16, len(f))
	for i, b := range f {
		v[i] = uint16(b)
	}
	return json.Marshal(v)
}

// UnmarshalJSON accepts a number array or a base64 string.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var v []uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = v
	return nil
}

// Stride returns the effective frame duration in milliseconds.
func (r *Recording) Stride() uint32 {
	if r.FrameMs == 0 {
		return DefaultFrameMs
	}
	return r.FrameMs
}

// Validate checks that every frame carries one score per label.
func (r *Recording) Validate() error {
	if len(r.Labels) == 0 {
		return errors.New("inference: recording has no labels")
	}
	for i, f := range r.Frames {
		if len(f) != len(r.Labels) {
			return fmt.Errorf("inference: frame %d has %d scores, want %d", i, len(f), len(r.Labels))
		}
	}
	return nil
}

// FormatFromPath guesses the encoding from a file extension. It returns
// an empty Format for unknown extensions.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".msgpack", ".mp":
		return FormatMsgpack
	}
	return ""
}

// LoadRecording reads and validates a recording file.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inference: read recording: %w", err)
	}
	return ParseRecording(data, FormatFromPath(path))
}

// ParseRecording decodes data in the given format. An empty format tries
// YAML first, then JSON.
func ParseRecording(data []byte, format Format) (*Recording, error) {
	var rec Recording
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("inference: parse YAML recording: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("inference: parse JSON recording: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("inference: parse msgpack recording: %w", err)
		}
	case "":
		if yerr := yaml.Unmarshal(data, &rec); yerr != nil {
			rec = Recording{}
			if jerr := json.Unmarshal(data, &rec); jerr != nil {
				return nil, fmt.Errorf("inference: parse recording (tried YAML and JSON): %w",
					errors.Join(fmt.Errorf("yaml: %w", yerr), fmt.Errorf("json: %w", jerr)))
			}
		}
	default:
		return nil, fmt.Errorf("inference: unsupported recording format %q", format)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Encode writes r to w in the given format.
func (r *Recording) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		return json.NewEncoder(w).Encode(r)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(r)
	default:
		return fmt.Errorf("inference: unsupported recording format %q", format)
	}
}
