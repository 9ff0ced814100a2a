package commands

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/pkg/archive"
	"github.com/OscarSR27/ESDML-Lab2/pkg/cli"
	"github.com/OscarSR27/ESDML-Lab2/pkg/inference"
)

var recordingCmd = &cobra.Command{
	Use:   "recording",
	Short: "Convert and upload score recordings",
}

// recordingInfo describes a recording for 'kws recording info'.
type recordingInfo struct {
	Labels     []string `json:"labels" yaml:"labels"`
	Frames     int      `json:"frames" yaml:"frames"`
	FrameMs    uint32   `json:"frame_ms" yaml:"frame_ms"`
	DurationMs uint64   `json:"duration_ms" yaml:"duration_ms"`
	Duration   string   `json:"duration" yaml:"duration"`
}

var recordingInfoCmd = &cobra.Command{
	Use:   "info <recording>",
	Short: "Show the labels and length of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kctx, err := getContext()
		if err != nil {
			return err
		}
		rec, err := loadRecording(cmd.Context(), args[0], kctx.S3Credentials())
		if err != nil {
			return err
		}
		ms := uint64(len(rec.Frames)) * uint64(rec.Stride())
		return output(cmd, recordingInfo{
			Labels:     rec.Labels,
			Frames:     len(rec.Frames),
			FrameMs:    rec.Stride(),
			DurationMs: ms,
			Duration:   cli.FormatDuration(ms),
		})
	},
}

var recordingConvertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Re-encode a recording as YAML, JSON or msgpack",
	Long: `Re-encode a recording. The output format follows the output file
extension (.yaml, .json, .msgpack) unless --format is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kctx, err := getContext()
		if err != nil {
			return err
		}
		rec, err := loadRecording(cmd.Context(), args[0], kctx.S3Credentials())
		if err != nil {
			return err
		}
		format, err := recordingFormat(cmd, args[1])
		if err != nil {
			return err
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		if err := rec.Encode(f, format); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Wrote %d frames to %s (%s)", len(rec.Frames), args[1], format)
		return nil
	},
}

var recordingPushCmd = &cobra.Command{
	Use:   "push <recording> <location>",
	Short: "Upload a recording to a directory or S3",
	Long: `Validate a recording and upload it. The location is either a
destination ending in "/" (the file name is kept) or a full object
location such as s3://captures/board/0301.msgpack.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kctx, err := getContext()
		if err != nil {
			return err
		}
		rec, err := inference.LoadRecording(args[0])
		if err != nil {
			return err
		}
		loc := args[1]
		if strings.HasSuffix(loc, "/") {
			loc += path.Base(args[0])
		}
		dest, name := archive.SplitLocation(loc)
		if name == "" {
			return fmt.Errorf("location %q has no object name", args[1])
		}
		format, err := recordingFormat(cmd, name)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := rec.Encode(&buf, format); err != nil {
			return err
		}
		target, err := archive.Open(dest, kctx.S3Credentials())
		if err != nil {
			return err
		}
		if err := target.Put(cmd.Context(), name, &buf); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Uploaded %d frames to %s", len(rec.Frames), loc)
		return nil
	},
}

func recordingFormat(cmd *cobra.Command, name string) (inference.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	if s != "" {
		switch f := inference.Format(s); f {
		case inference.FormatYAML, inference.FormatJSON, inference.FormatMsgpack:
			return f, nil
		}
		return "", fmt.Errorf("unsupported recording format %q", s)
	}
	if f := inference.FormatFromPath(name); f != "" {
		return f, nil
	}
	return inference.FormatYAML, nil
}

func init() {
	recordingConvertCmd.Flags().String("format", "", "yaml, json or msgpack")
	recordingPushCmd.Flags().String("format", "", "yaml, json or msgpack")

	recordingCmd.AddCommand(recordingInfoCmd)
	recordingCmd.AddCommand(recordingConvertCmd)
	recordingCmd.AddCommand(recordingPushCmd)
}
