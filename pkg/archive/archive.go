// Package archive stores detection exports and score recordings outside
// the local event log, on disk or in an S3-compatible bucket.
//
// Names are forward-slash separated and relative to the target root,
// e.g. "2026-03-01/events.jsonl".
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ErrNotExist is wrapped by Get when the named object is missing.
var ErrNotExist = errors.New("archive: object does not exist")

// Target is a place exports can be written to and read back from.
// Implementations must be safe for concurrent use.
type Target interface {
	// Put stores the contents of r under name, replacing any previous
	// object.
	Put(ctx context.Context, name string, r io.Reader) error

	// Get opens the named object. The caller must close it.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists reports whether the named object exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// S3Credentials configures access to an S3-compatible endpoint.
type S3Credentials struct {
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Open resolves a destination string to a Target:
//
//	/var/kws/exports          local directory
//	file:///var/kws/exports   local directory
//	s3://bucket/prefix        S3 bucket with optional key prefix
func Open(dest string, creds S3Credentials) (Target, error) {
	if dest == "" {
		return nil, errors.New("archive: empty destination")
	}
	if !strings.Contains(dest, "://") {
		return NewLocal(dest)
	}
	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("archive: parse destination: %w", err)
	}
	switch u.Scheme {
	case "file":
		return NewLocal(u.Path)
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("archive: %q has no bucket", dest)
		}
		return NewS3(NewS3Client(creds), u.Host, strings.Trim(u.Path, "/")), nil
	default:
		return nil, fmt.Errorf("archive: unsupported scheme %q", u.Scheme)
	}
}

// SplitLocation splits "s3://bucket/dir/file.yaml" into the Target
// destination "s3://bucket/dir" and the object name "file.yaml". Plain
// paths split at the last slash.
func SplitLocation(loc string) (dest, name string) {
	i := strings.LastIndex(loc, "/")
	switch {
	case i < 0:
		return ".", loc
	case strings.HasSuffix(loc[:i+1], "://"):
		return loc, ""
	case i == 0:
		return "/", loc[1:]
	}
	return loc[:i], loc[i+1:]
}
