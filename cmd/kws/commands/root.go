package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/pkg/cli"
)

const appName = "kws"

var (
	cfgFile      string
	contextName  string
	verbose      bool
	outputFormat string
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "kws",
	Short: "Keyword-spotting posterior handler",
	Long: `kws smooths per-frame classifier scores with a moving-sum window,
picks the strongest category and reports a detection when its smoothed
score crosses the configured threshold outside the suppression window.

Score streams are replayed from recordings (YAML, JSON or msgpack) on
disk or in S3. Detections can be recorded to a local event log,
forwarded over WebSocket and exported as JSONL.

Configuration is stored in ~/.microkws/kws/ and supports multiple
contexts, one per deployment profile.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd)
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		cli.PrintError("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.microkws/kws/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default is current context)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: yaml, json, table")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(recordingCmd)
	rootCmd.AddCommand(versionCmd)
}

// configErr stores the config load error for deferred reporting, so
// commands like 'kws version' work without a readable config.
var configErr error

func initConfig() {
	globalConfig, configErr = cli.LoadConfigWithPath(appName, cfgFile)
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// getConfig returns the loaded configuration.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configErr != nil {
			return nil, fmt.Errorf("%s config: %w", appName, configErr)
		}
		return nil, fmt.Errorf("%s config not loaded", appName)
	}
	return globalConfig, nil
}

// getContext returns the context selected by -c or the current one. A
// missing current context is not an error; nil is returned and callers
// fall back to defaults.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	ctx, err := cfg.ResolveContext(contextName)
	if contextName == "" && err != nil {
		return nil, nil
	}
	return ctx, err
}

func output(cmd *cobra.Command, result any) error {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
}
