package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPaths(t *testing.T) {
	paths, err := NewPaths("kws")
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}
	if paths.AppName != "kws" || paths.HomeDir == "" {
		t.Errorf("paths = %+v", paths)
	}
}

func TestPaths_Layout(t *testing.T) {
	home := t.TempDir()
	p := &Paths{AppName: "kws", HomeDir: home}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BaseDir", p.BaseDir(), filepath.Join(home, ".microkws")},
		{"AppDir", p.AppDir(), filepath.Join(home, ".microkws", "kws")},
		{"ConfigFile", p.ConfigFile(), filepath.Join(home, ".microkws", "kws", "config.yaml")},
		{"DataDir", p.DataDir(), filepath.Join(home, ".microkws", "kws", "data")},
		{"EventLogDir", p.EventLogDir("board"), filepath.Join(home, ".microkws", "kws", "data", "events", "board")},
		{"EventLogDir default", p.EventLogDir(""), filepath.Join(home, ".microkws", "kws", "data", "events", "default")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}

	if err := p.EnsureDataDir(); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(p.DataDir()); err != nil || !info.IsDir() {
		t.Errorf("DataDir not created: %v", err)
	}
}
