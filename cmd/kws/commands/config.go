package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage kws configuration.

Configuration is stored in ~/.microkws/kws/config.yaml`,
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage contexts",
	Long:  `Manage kws contexts, one spotter profile per deployment.`,
}

// contextRow is one line of 'kws config context list'.
type contextRow struct {
	Current   bool   `json:"current" yaml:"current"`
	Name      string `json:"name" yaml:"name"`
	History   uint32 `json:"history_length" yaml:"history_length"`
	Threshold uint8  `json:"trigger_threshold" yaml:"trigger_threshold"`
	Suppress  uint32 `json:"suppression_ms" yaml:"suppression_ms"`
	EventLog  string `json:"event_log,omitempty" yaml:"event_log,omitempty"`
}

type contextList []contextRow

func (l contextList) Header() []string {
	return []string{"CURRENT", "NAME", "HISTORY", "THRESHOLD", "SUPPRESSION", "EVENT_LOG"}
}

func (l contextList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		current := ""
		if r.Current {
			current = "*"
		}
		rows = append(rows, []string{
			current, r.Name,
			strconv.FormatUint(uint64(r.History), 10),
			strconv.FormatUint(uint64(r.Threshold), 10),
			cli.FormatDuration(uint64(r.Suppress)),
			valueOrNotSet(r.EventLog),
		})
	}
	return rows
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured.")
			fmt.Fprintln(cmd.OutOrStdout(), "\nCreate one with:")
			fmt.Fprintln(cmd.OutOrStdout(), "  kws config context set board --history 50 --threshold 200 --suppression 1500")
			return nil
		}

		list := make(contextList, 0, len(names))
		for _, name := range names {
			ctx, _ := cfg.GetContext(name)
			p := ctx.SpotterConfig().Posterior
			list = append(list, contextRow{
				Current:   name == cfg.CurrentContext,
				Name:      name,
				History:   p.HistoryLength,
				Threshold: p.TriggerThreshold,
				Suppress:  p.SuppressionMs,
				EventLog:  ctx.EventLog,
			})
		}
		if outputFormat == "" {
			return cli.Output(list, cli.OutputOptions{Format: cli.FormatTable, Writer: cmd.OutOrStdout()})
		}
		return output(cmd, list)
	},
}

var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Switched to context %q", args[0])
		return nil
	},
}

var contextSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a context. Only the flags given are changed.

Examples:
  # Reference micro-speech profile
  kws config context set board --history 50 --threshold 200 --suppression 1500 \
    --labels _silence_,_unknown_,yes,no

  # Start from a profile file and record detections
  kws config context set lab --profile lab.yaml --event-log /var/lib/kws/events

  # Export detections to MinIO
  kws config context set lab --export s3://kws/lab --s3-endpoint http://localhost:9000 \
    --s3-access-key minio --s3-secret-key minio123

  # Tag forwarded detections with the device name
  kws config context set board --notify ws://localhost:8080/kws --set device=board-7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := args[0]
		ctx, err := cfg.GetContext(name)
		if err != nil {
			ctx = &cli.Context{Name: name}
		}
		if err := applyContextFlags(cmd, ctx); err != nil {
			return err
		}
		if err := cfg.SetContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q saved", name)
		return nil
	},
}

// applyContextFlags copies the changed 'context set' flags onto ctx.
func applyContextFlags(cmd *cobra.Command, ctx *cli.Context) error {
	flags := cmd.Flags()
	profile := ctx.SpotterConfig()
	if flags.Changed("profile") {
		path, _ := flags.GetString("profile")
		p, err := cli.LoadProfile(path)
		if err != nil {
			return err
		}
		profile = p
	}
	if err := applyProfileFlags(cmd, &profile); err != nil {
		return err
	}
	// The category count usually comes from the recording at run time.
	check := profile.Posterior
	if check.CategoryCount == 0 {
		check.CategoryCount = 1
	}
	if err := check.Validate(); err != nil {
		return err
	}
	ctx.Profile = &profile

	if flags.Changed("event-log") {
		ctx.EventLog, _ = flags.GetString("event-log")
	}
	if flags.Changed("notify") {
		ctx.NotifyURL, _ = flags.GetString("notify")
	}
	if flags.Changed("export") {
		ctx.Export, _ = flags.GetString("export")
	}
	if flags.Changed("set") {
		pairs, _ := flags.GetStringArray("set")
		for _, kv := range pairs {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid --set %q, want key=value", kv)
			}
			ctx.SetExtra(key, value)
		}
	}

	creds := ctx.S3Credentials()
	s3Changed := false
	for flag, dst := range map[string]*string{
		"s3-region":     &creds.Region,
		"s3-endpoint":   &creds.Endpoint,
		"s3-access-key": &creds.AccessKey,
		"s3-secret-key": &creds.SecretKey,
	} {
		if flags.Changed(flag) {
			*dst, _ = flags.GetString(flag)
			s3Changed = true
		}
	}
	if s3Changed {
		ctx.S3 = &creds
	}
	return nil
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q deleted", args[0])
		return nil
	},
}

var contextShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show context details",
	Long:  `Show details of a context. If no name is provided, shows the current context.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := ""
		if len(args) > 0 {
			name = args[0]
		} else if contextName != "" {
			name = contextName
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			if name == "" {
				return fmt.Errorf("%w. Use 'kws config context use <name>' to set one", err)
			}
			return err
		}

		if outputFormat != "" {
			shown := *ctx
			if shown.S3 != nil {
				creds := *shown.S3
				creds.SecretKey = cli.MaskSecret(creds.SecretKey)
				shown.S3 = &creds
			}
			return output(cmd, shown)
		}

		w := cmd.OutOrStdout()
		p := ctx.SpotterConfig()
		fmt.Fprintf(w, "Context: %s", ctx.Name)
		if ctx.Name == cfg.CurrentContext {
			fmt.Fprint(w, " (current)")
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "History:      %d frames\n", p.Posterior.HistoryLength)
		fmt.Fprintf(w, "Threshold:    %d (scaled %d)\n", p.Posterior.TriggerThreshold, p.Posterior.ScaledThreshold())
		fmt.Fprintf(w, "Suppression:  %s\n", cli.FormatDuration(uint64(p.Posterior.SuppressionMs)))
		fmt.Fprintf(w, "Labels:       %s\n", valueOrNotSet(strings.Join(p.Labels, ",")))
		fmt.Fprintf(w, "Ignore:       %s\n", ignoreString(p.Ignore))
		fmt.Fprintf(w, "Event log:    %s\n", valueOrNotSet(ctx.EventLog))
		fmt.Fprintf(w, "Notify:       %s\n", valueOrNotSet(ctx.NotifyURL))
		fmt.Fprintf(w, "Export:       %s\n", valueOrNotSet(ctx.Export))
		for _, key := range ctx.ExtraKeys() {
			fmt.Fprintf(w, "Extra:        %s=%s\n", key, ctx.GetExtra(key))
		}
		if ctx.S3 != nil {
			fmt.Fprintf(w, "S3:           %s %s key=%s\n", valueOrNotSet(ctx.S3.Region),
				valueOrNotSet(ctx.S3.Endpoint), cli.MaskSecret(ctx.S3.AccessKey))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Config file: %s\n", cfg.Path())
		return nil
	},
}

var contextCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func ignoreString(ignore []string) string {
	switch {
	case ignore == nil:
		return "(default: _silence_, _unknown_, silence, unknown)"
	case len(ignore) == 0:
		return "(none)"
	}
	return strings.Join(ignore, ",")
}

func init() {
	configCmd.AddCommand(contextCmd)

	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextUseCmd)
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextCurrentCmd)

	f := contextSetCmd.Flags()
	f.String("profile", "", "load the spotter profile from a YAML or JSON file")
	addProfileFlags(contextSetCmd)
	f.String("event-log", "", "event log directory")
	f.String("notify", "", "WebSocket URL detections are forwarded to")
	f.String("export", "", "default export destination (directory or s3://bucket/prefix)")
	f.StringArray("set", nil, "tag notifications with key=value (empty value removes the key)")
	f.String("s3-region", "", "S3 region")
	f.String("s3-endpoint", "", "S3-compatible endpoint URL")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")
}
