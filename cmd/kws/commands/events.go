package commands

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/pkg/archive"
	"github.com/OscarSR27/ESDML-Lab2/pkg/cli"
	"github.com/OscarSR27/ESDML-Lab2/pkg/eventlog"
	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded detections",
	Long: `Inspect, export and delete detections recorded by 'kws run --record'.

The event log is the context's event_log directory, --event-log, or
~/.microkws/kws/data/events/<context>.`,
}

// eventList is the table form of 'kws events list'.
type eventList []kws.Event

func (l eventList) Header() []string {
	return []string{"TIME", "LABEL", "SCORE", "OFFSET", "ID"}
}

func (l eventList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, ev := range l {
		rows = append(rows, []string{
			ev.At.Local().Format(time.DateTime + ".000"),
			ev.Label,
			strconv.FormatUint(uint64(ev.Score), 10),
			cli.FormatOffset(ev.TimeMs),
			ev.ID,
		})
	}
	return rows
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded detections",
	Long: `List recorded detections in chronological order.

--since and --until accept RFC 3339 timestamps or durations relative
to now. --query is a jq expression evaluated against each event.

Examples:
  kws events list --since 1h
  kws events list --label yes --query '.score > 9000' -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd, time.Now())
		if err != nil {
			return err
		}
		store, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		list := eventList{}
		for ev, err := range store.List(cmd.Context(), q) {
			if err != nil {
				return err
			}
			list = append(list, ev)
		}
		if outputFormat == "" {
			return cli.Output(list, cli.OutputOptions{Format: cli.FormatTable, Writer: cmd.OutOrStdout()})
		}
		return output(cmd, list)
	},
}

var eventsExportCmd = &cobra.Command{
	Use:   "export [destination]",
	Short: "Export detections as JSONL to a directory or S3",
	Long: `Write the matching detections as JSON lines to an archive
destination: a directory, file:///dir, or s3://bucket/prefix. The
destination defaults to the context's export setting.

Examples:
  kws events export ./exports --since 24h
  kws events export s3://kws-exports/board --name 2026-03-01.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kctx, err := getContext()
		if err != nil {
			return err
		}
		dest := ""
		if len(args) > 0 {
			dest = args[0]
		} else if kctx != nil {
			dest = kctx.Export
		}
		if dest == "" {
			return fmt.Errorf("no export destination: pass one or set it with 'kws config context set --export'")
		}

		now := time.Now()
		q, err := queryFromFlags(cmd, now)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = "events-" + now.UTC().Format("20060102T150405Z") + ".jsonl"
		}
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		target, err := archive.Open(dest, kctx.S3Credentials())
		if err != nil {
			return err
		}
		if !overwrite {
			exists, err := target.Exists(cmd.Context(), name)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%s already exists in %s (use --overwrite)", name, dest)
			}
		}

		store, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		var buf bytes.Buffer
		n, err := eventlog.ExportJSONL(cmd.Context(), store, q, &buf)
		if err != nil {
			return err
		}
		if err := target.Put(cmd.Context(), name, &buf); err != nil {
			return err
		}
		slog.Debug("exported events", "dest", dest, "name", name, "count", n)
		cli.PrintSuccess(cmd.OutOrStdout(), "Exported %d events to %s/%s", n, dest, name)
		return nil
	},
}

var eventsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete recorded detections",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Deleted %d events", len(args))
		return nil
	},
}

func openEventLog(cmd *cobra.Command) (*eventlog.Log, error) {
	kctx, err := getContext()
	if err != nil {
		return nil, err
	}
	dir, err := eventLogDir(cmd, kctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("opening event log", "dir", dir)
	return eventlog.NewBadger(eventlog.BadgerOptions{Dir: dir, Logger: slog.Default()})
}

func queryFromFlags(cmd *cobra.Command, now time.Time) (eventlog.Query, error) {
	f := cmd.Flags()
	var q eventlog.Query
	var err error
	if s, _ := f.GetString("since"); s != "" {
		if q.Since, err = parseTimeFlag(s, now); err != nil {
			return q, fmt.Errorf("--since: %w", err)
		}
	}
	if s, _ := f.GetString("until"); s != "" {
		if q.Until, err = parseTimeFlag(s, now); err != nil {
			return q, fmt.Errorf("--until: %w", err)
		}
	}
	q.Label, _ = f.GetString("label")
	q.Expr, _ = f.GetString("query")
	q.Limit, _ = f.GetInt("limit")
	return q, nil
}

// parseTimeFlag accepts an RFC 3339 timestamp or a duration, which is
// taken as that long before now.
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC 3339 time nor a duration", s)
	}
	if d < 0 {
		d = -d
	}
	return now.Add(-d), nil
}

func addQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("since", "", "only events at or after this time (RFC 3339 or duration ago)")
	f.String("until", "", "only events at or before this time (RFC 3339 or duration ago)")
	f.String("label", "", "only events with this label")
	f.String("query", "", "jq expression selecting events")
	f.Int("limit", 0, "maximum number of events (0 for all)")
}

func init() {
	eventsCmd.PersistentFlags().String("event-log", "", "event log directory")

	addQueryFlags(eventsListCmd)
	addQueryFlags(eventsExportCmd)
	eventsExportCmd.Flags().String("name", "", "object name (default events-<timestamp>.jsonl)")
	eventsExportCmd.Flags().Bool("overwrite", false, "replace an existing object")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsExportCmd)
	eventsCmd.AddCommand(eventsDeleteCmd)
}
