package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/pkg/archive"
	"github.com/OscarSR27/ESDML-Lab2/pkg/cli"
	"github.com/OscarSR27/ESDML-Lab2/pkg/eventlog"
	"github.com/OscarSR27/ESDML-Lab2/pkg/inference"
	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
	"github.com/OscarSR27/ESDML-Lab2/pkg/notify"
)

var runCmd = &cobra.Command{
	Use:   "run <recording>",
	Short: "Replay a score recording through the posterior handler",
	Long: `Replay classifier scores through the posterior handler and report
detections.

The recording is a YAML, JSON or msgpack file on disk, or an
s3://bucket/key location fetched with the context's S3 credentials.
Frame timestamps come from the recording's frame stride.

Detections are printed, recorded to the event log when one is
configured (or --record is given), and forwarded to the context's
WebSocket URL.

Examples:
  kws run capture.yaml
  kws run -c board --threshold 180 --trace capture.msgpack
  kws run --record --notify ws://localhost:8080/kws s3://captures/board/0301.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSpotter,
}

func init() {
	f := runCmd.Flags()
	f.String("profile", "", "load the spotter profile from a YAML or JSON file")
	addProfileFlags(runCmd)
	f.Bool("record", false, "record detections to the event log")
	f.String("event-log", "", "event log directory (implies --record)")
	f.String("notify", "", "forward detections to this WebSocket URL")
	f.Bool("trace", false, "print the moving-sum bar of the top category for every frame")
	f.Bool("quiet", false, "do not print detections")
}

// runSummary is printed when a replay finishes.
type runSummary struct {
	Source       string     `json:"source" yaml:"source"`
	Context      string     `json:"context,omitempty" yaml:"context,omitempty"`
	Profile      kws.Config `json:"profile" yaml:"profile"`
	HistoryBytes int64      `json:"history_bytes" yaml:"history_bytes"`
	Stats        kws.Stats  `json:"stats" yaml:"stats"`
	EventLog     string     `json:"event_log,omitempty" yaml:"event_log,omitempty"`
}

func runSpotter(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kctx, err := getContext()
	if err != nil {
		return err
	}
	flags := cmd.Flags()

	profile := kctx.SpotterConfig()
	if flags.Changed("profile") {
		path, _ := flags.GetString("profile")
		if profile, err = cli.LoadProfile(path); err != nil {
			return err
		}
	}
	if err := applyProfileFlags(cmd, &profile); err != nil {
		return err
	}

	rec, err := loadRecording(ctx, args[0], kctx.S3Credentials())
	if err != nil {
		return err
	}
	if len(profile.Labels) == 0 {
		profile.Labels = rec.Labels
	}

	styles := cli.NewStyles(cli.DefaultTheme)
	out := cmd.OutOrStdout()
	quiet, _ := flags.GetBool("quiet")
	trace, _ := flags.GetBool("trace")

	var dispatchers kws.MultiDispatcher
	if !quiet {
		dispatchers = append(dispatchers, kws.DispatcherFunc(func(_ context.Context, ev kws.Event) error {
			fmt.Fprintln(out, styles.Detection(ev))
			return nil
		}))
	}

	summary := runSummary{Source: args[0]}
	if kctx != nil {
		summary.Context = kctx.Name
	}

	record, _ := flags.GetBool("record")
	logDir, _ := flags.GetString("event-log")
	if logDir != "" || record || (kctx != nil && kctx.EventLog != "") {
		if logDir, err = eventLogDir(cmd, kctx); err != nil {
			return err
		}
		store, err := eventlog.NewBadger(eventlog.BadgerOptions{Dir: logDir, Logger: slog.Default()})
		if err != nil {
			return err
		}
		defer store.Close()
		dispatchers = append(dispatchers, kws.DispatcherFunc(store.Append))
		summary.EventLog = logDir
	}

	notifyURL, _ := flags.GetString("notify")
	if notifyURL == "" && kctx != nil {
		notifyURL = kctx.NotifyURL
	}
	if notifyURL != "" {
		opts := []notify.Option{notify.WithLogger(slog.Default())}
		if kctx != nil {
			opts = append(opts, notify.WithExtra(kctx.Extra))
		}
		ws := notify.NewWebSocket(notifyURL, opts...)
		defer ws.Close()
		dispatchers = append(dispatchers, ws)
	}

	var spotter *kws.Spotter
	observe := func(f kws.Frame) {
		if trace {
			h := spotter.Handler()
			full := 255 * h.Config().HistoryLength
			fmt.Fprintf(out, "%9s %s\n", cli.FormatOffset(f.TimeMs),
				styles.ScoreBar(f.Label, f.Score, h.ScaledThreshold(), full, 30))
		}
		if f.Triggered && f.Event == nil && !quiet {
			fmt.Fprintln(out, styles.IgnoredDetection(f.Label, f.Score, f.TimeMs))
		}
	}

	spotter, err = kws.New(profile, inference.NewReplay(rec),
		kws.WithDispatcher(dispatchers),
		kws.WithObserver(observe),
	)
	if err != nil {
		return err
	}
	defer spotter.Close()

	stats, err := spotter.Run(ctx)
	summary.Stats = stats
	summary.Profile = profile
	summary.Profile.Posterior = spotter.Handler().Config()
	summary.HistoryBytes = int64(summary.Profile.Posterior.CategoryCount) * int64(summary.Profile.Posterior.HistoryLength)
	if err != nil {
		return err
	}

	if outputFormat != "" {
		return output(cmd, summary)
	}
	fmt.Fprintln(out, styles.Box("kws run", summaryLines(summary), 60))
	return nil
}

func summaryLines(s runSummary) []string {
	p := s.Profile.Posterior
	lines := []string{
		"source      " + s.Source,
		fmt.Sprintf("profile     history=%d threshold=%d (scaled %d) suppression=%s",
			p.HistoryLength, p.TriggerThreshold, p.ScaledThreshold(), cli.FormatDuration(uint64(p.SuppressionMs))),
		fmt.Sprintf("categories  %d (%s history)", p.CategoryCount, cli.FormatBytes(s.HistoryBytes)),
		fmt.Sprintf("frames      %d", s.Stats.Frames),
		fmt.Sprintf("detections  %d dispatched, %d ignored, %d failed",
			s.Stats.Dispatched, s.Stats.Ignored, s.Stats.DispatchErrors),
	}
	if s.EventLog != "" {
		lines = append(lines, "event log   "+s.EventLog)
	}
	return lines
}

// loadRecording reads a recording from a local path or an archive
// location such as s3://bucket/key.yaml.
func loadRecording(ctx context.Context, loc string, creds archive.S3Credentials) (*inference.Recording, error) {
	if !strings.Contains(loc, "://") || strings.HasPrefix(loc, "file://") {
		return inference.LoadRecording(strings.TrimPrefix(loc, "file://"))
	}
	dest, name := archive.SplitLocation(loc)
	if name == "" {
		return nil, fmt.Errorf("recording location %q has no object name", loc)
	}
	target, err := archive.Open(dest, creds)
	if err != nil {
		return nil, err
	}
	rc, err := target.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return inference.ParseRecording(data, inference.FormatFromPath(name))
}

// eventLogDir resolves the event log directory from --event-log, the
// context, or the default data directory.
func eventLogDir(cmd *cobra.Command, kctx *cli.Context) (string, error) {
	if dir, _ := cmd.Flags().GetString("event-log"); dir != "" {
		return dir, nil
	}
	if kctx != nil && kctx.EventLog != "" {
		return kctx.EventLog, nil
	}
	paths, err := cli.NewPaths(appName)
	if err != nil {
		return "", err
	}
	name := ""
	if kctx != nil {
		name = kctx.Name
	}
	return paths.EventLogDir(name), nil
}
