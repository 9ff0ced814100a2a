package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
	"github.com/OscarSR27/ESDML-Lab2/pkg/notify"
)

// env is an isolated config file and data directory for one test.
type env struct {
	config string
	dir    string
}

func setupTestEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{config: filepath.Join(dir, "config.yaml"), dir: dir}
}

func (e env) path(name string) string {
	return filepath.Join(e.dir, name)
}

// run executes the root command with the env's config file.
func (e env) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", e.config}, args...))

	cfgFile, contextName, verbose, outputFormat = "", "", false, ""
	err = rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), errOut.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("kws %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				sv.Replace(nil)
			} else {
				f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeRecording writes a two-label recording with n frames of [255, 0]
// at a 10 ms stride.
func writeRecording(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("labels: [\"yes\", \"no\"]\nframe_ms: 10\nframes:\n")
	for range n {
		b.WriteString("  - [255, 0]\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	e := setupTestEnv(t)
	if out := e.mustRun(t, "version"); !strings.HasPrefix(out, "kws ") {
		t.Errorf("version = %q", out)
	}
	out := e.mustRun(t, "version", "-o", "json")
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version JSON: %v\n%s", err, out)
	}
	if info["version"] == "" || info["go"] == "" {
		t.Errorf("info = %v", info)
	}
}

func TestContextCommands(t *testing.T) {
	e := setupTestEnv(t)

	if out := e.mustRun(t, "config", "context", "list"); !strings.Contains(out, "No contexts configured") {
		t.Errorf("empty list = %q", out)
	}

	e.mustRun(t, "config", "context", "set", "board",
		"--history", "4", "--threshold", "200", "--suppression", "50",
		"--labels", "yes,no", "--event-log", e.path("events"),
		"--s3-access-key", "AKIAEXAMPLEKEY", "--s3-secret-key", "topsecretvalue")
	e.mustRun(t, "config", "context", "set", "lab", "--history", "25")

	out := e.mustRun(t, "config", "context", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("list = %q", out)
	}
	if !strings.HasPrefix(lines[1], "*") || !strings.Contains(lines[1], "board") {
		t.Errorf("board should be current: %q", lines[1])
	}
	if !strings.Contains(lines[2], "lab") || !strings.Contains(lines[2], "25") {
		t.Errorf("lab row = %q", lines[2])
	}

	out = e.mustRun(t, "config", "context", "show")
	for _, want := range []string{"Context: board (current)", "History:      4 frames", "scaled 800", "Labels:       yes,no"} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "AKIAEXAMPLEKEY") {
		t.Error("show should mask the access key")
	}

	out = e.mustRun(t, "config", "context", "show", "board", "-o", "json")
	if strings.Contains(out, "topsecretvalue") {
		t.Errorf("JSON show leaks the secret key:\n%s", out)
	}

	e.mustRun(t, "config", "context", "use", "lab")
	if out := e.mustRun(t, "config", "context", "current"); strings.TrimSpace(out) != "lab" {
		t.Errorf("current = %q", out)
	}
	if _, _, err := e.run(t, "config", "context", "use", "missing"); err == nil {
		t.Error("use missing should fail")
	}
	if _, _, err := e.run(t, "config", "context", "set", "bad", "--history", "0"); err == nil {
		t.Error("zero history should be rejected")
	}

	e.mustRun(t, "config", "context", "delete", "lab")
	if out := e.mustRun(t, "config", "context", "current"); !strings.Contains(out, "No current context") {
		t.Errorf("current after delete = %q", out)
	}
}

func TestContextEmptyIgnoreIsKept(t *testing.T) {
	e := setupTestEnv(t)

	e.mustRun(t, "config", "context", "set", "board", "--ignore", "")
	e.mustRun(t, "config", "context", "set", "lab", "--history", "25")

	out := e.mustRun(t, "config", "context", "show", "board")
	if !strings.Contains(out, "Ignore:       (none)") {
		t.Errorf("board show:\n%s", out)
	}
	out = e.mustRun(t, "config", "context", "show", "lab")
	if !strings.Contains(out, "Ignore:       (default:") {
		t.Errorf("lab show:\n%s", out)
	}
}

func TestContextExtraTagsNotifications(t *testing.T) {
	e := setupTestEnv(t)

	got := make(chan notify.Message, 4)
	up := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var m notify.Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			got <- m
		}
	}))
	defer ts.Close()

	e.mustRun(t, "config", "context", "set", "board",
		"--history", "4", "--threshold", "200", "--suppression", "50",
		"--notify", "ws"+strings.TrimPrefix(ts.URL, "http"),
		"--set", "device=board-7", "--set", "room=lab")
	e.mustRun(t, "config", "context", "set", "board", "--set", "room=")

	out := e.mustRun(t, "config", "context", "show")
	if !strings.Contains(out, "Extra:        device=board-7") || strings.Contains(out, "room=") {
		t.Errorf("show:\n%s", out)
	}
	if _, _, err := e.run(t, "config", "context", "set", "board", "--set", "novalue"); err == nil {
		t.Error("--set without '=' should fail")
	}

	rec := e.path("capture.yaml")
	writeRecording(t, rec, 4)
	e.mustRun(t, "run", rec, "--quiet")

	select {
	case m := <-got:
		if m.Event.Label != "yes" || m.Extra["device"] != "board-7" || len(m.Extra) != 1 {
			t.Errorf("message = %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestRunRecordsAndExports(t *testing.T) {
	e := setupTestEnv(t)
	rec := e.path("capture.yaml")
	writeRecording(t, rec, 10)

	e.mustRun(t, "config", "context", "set", "board",
		"--history", "4", "--threshold", "200", "--suppression", "50",
		"--event-log", e.path("events"), "--export", e.path("exports"))

	out := e.mustRun(t, "run", rec, "--quiet", "-o", "json")
	var summary struct {
		Context  string    `json:"context"`
		Stats    kws.Stats `json:"stats"`
		EventLog string    `json:"event_log"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("summary JSON: %v\n%s", err, out)
	}
	if summary.Context != "board" || summary.Stats.Frames != 10 || summary.Stats.Dispatched != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.EventLog != e.path("events") {
		t.Errorf("event log = %q", summary.EventLog)
	}

	out = e.mustRun(t, "events", "list", "-o", "json")
	var events []kws.Event
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("events JSON: %v\n%s", err, out)
	}
	if len(events) != 2 || events[0].TimeMs != 30 || events[1].TimeMs != 90 || events[0].Label != "yes" {
		t.Fatalf("events = %+v", events)
	}

	out = e.mustRun(t, "events", "list", "--label", "no")
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 1 {
		t.Errorf("label filter should leave only the header: %q", out)
	}
	out = e.mustRun(t, "events", "list", "--query", ".time_ms > 50")
	if !strings.Contains(out, events[1].ID) || strings.Contains(out, events[0].ID) {
		t.Errorf("query output = %q", out)
	}

	e.mustRun(t, "events", "export", "--name", "board.jsonl")
	data, err := os.ReadFile(filepath.Join(e.path("exports"), "board.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
	}
	if n != 2 {
		t.Errorf("exported %d lines, want 2", n)
	}
	if _, _, err := e.run(t, "events", "export", "--name", "board.jsonl"); err == nil {
		t.Error("export over an existing object should fail without --overwrite")
	}
	e.mustRun(t, "events", "export", "--name", "board.jsonl", "--overwrite", "--limit", "1")

	e.mustRun(t, "events", "delete", events[0].ID)
	out = e.mustRun(t, "events", "list", "-o", "json")
	events = nil
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("after delete: %d events, want 1", len(events))
	}
}

func TestRunPrintsDetections(t *testing.T) {
	e := setupTestEnv(t)
	rec := e.path("capture.yaml")
	writeRecording(t, rec, 10)

	out := e.mustRun(t, "run", rec, "--history", "4", "--threshold", "200", "--suppression", "50", "--trace")
	if got := strings.Count(out, "▶"); got != 2 {
		t.Errorf("printed %d detections, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "kws run") || !strings.Contains(out, "frames      10") {
		t.Errorf("summary box missing:\n%s", out)
	}
	if got := strings.Count(out, "█"); got == 0 {
		t.Errorf("--trace should print score bars:\n%s", out)
	}
}

func TestRunIgnoredLabels(t *testing.T) {
	e := setupTestEnv(t)
	rec := e.path("silence.json")
	data := `{"labels": ["_silence_", "go"], "frame_ms": 20, "frames": [[250, 0], [250, 0]]}`
	if err := os.WriteFile(rec, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out := e.mustRun(t, "run", rec, "--history", "1", "--threshold", "100", "--suppression", "0")
	if !strings.Contains(out, "(ignored)") || strings.Contains(out, "▶") {
		t.Errorf("silence should be reported as ignored:\n%s", out)
	}

	out = e.mustRun(t, "run", rec, "--history", "1", "--threshold", "100", "--ignore", "")
	if !strings.Contains(out, "▶") {
		t.Errorf("--ignore \"\" should dispatch silence:\n%s", out)
	}
}

func TestRunErrors(t *testing.T) {
	e := setupTestEnv(t)
	if _, _, err := e.run(t, "run", e.path("missing.yaml")); err == nil {
		t.Error("missing recording should fail")
	}
	if _, _, err := e.run(t, "run", "s3://bucket"); err == nil {
		t.Error("location without object name should fail")
	}
	rec := e.path("capture.yaml")
	writeRecording(t, rec, 1)
	if _, _, err := e.run(t, "run", rec, "--history", "0"); err == nil {
		t.Error("zero history should fail")
	}
	if _, _, err := e.run(t, "-c", "nope", "run", rec); err == nil {
		t.Error("unknown context should fail")
	}
}

func TestRecordingConvertAndPush(t *testing.T) {
	e := setupTestEnv(t)
	src := e.path("capture.yaml")
	writeRecording(t, src, 6)

	mp := e.path("capture.msgpack")
	e.mustRun(t, "recording", "convert", src, mp)
	out := e.mustRun(t, "recording", "info", mp, "-o", "json")
	var info recordingInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatal(err)
	}
	if info.Frames != 6 || info.FrameMs != 10 || info.DurationMs != 60 || len(info.Labels) != 2 {
		t.Errorf("info = %+v", info)
	}

	e.mustRun(t, "recording", "push", mp, e.path("archive")+"/")
	pushed := filepath.Join(e.path("archive"), "capture.msgpack")
	out = e.mustRun(t, "recording", "info", "file://"+pushed)
	if !strings.Contains(out, "frames: 6") {
		t.Errorf("pushed recording info = %q", out)
	}

	if _, _, err := e.run(t, "recording", "convert", src, e.path("x.bin"), "--format", "toml"); err == nil {
		t.Error("unsupported --format should fail")
	}
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-03-01T10:00:00Z", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"1h", now.Add(-time.Hour), false},
		{"-30m", now.Add(-30 * time.Minute), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeFlag(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
