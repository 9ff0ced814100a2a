package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the per-app directories under ~/.microkws.
type Paths struct {
	// AppName is the application name.
	AppName string

	// HomeDir is the user's home directory.
	HomeDir string
}

// NewPaths creates a Paths for appName rooted at the user's home.
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{AppName: appName, HomeDir: home}, nil
}

// BaseDir returns ~/.microkws.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// AppDir returns ~/.microkws/<app>.
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir(), p.AppName)
}

// ConfigFile returns ~/.microkws/<app>/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// DataDir returns ~/.microkws/<app>/data.
func (p *Paths) DataDir() string {
	return filepath.Join(p.AppDir(), "data")
}

// EventLogDir returns the default event log directory for a context.
func (p *Paths) EventLogDir(context string) string {
	if context == "" {
		context = "default"
	}
	return filepath.Join(p.DataDir(), "events", context)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0o755)
}
