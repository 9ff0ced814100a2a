package commands

import (
	"github.com/spf13/cobra"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// addProfileFlags registers the flags that override a spotter profile.
func addProfileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Uint32("history", 0, "smoothing window length in frames")
	f.Uint8("threshold", 0, "per-frame trigger threshold (0-255)")
	f.Uint32("suppression", 0, "minimum milliseconds between detections")
	f.StringSlice("labels", nil, "category labels in output order")
	f.StringSlice("ignore", nil, `labels or indices never reported (use "" for none)`)
}

// applyProfileFlags copies the changed profile flags onto p.
func applyProfileFlags(cmd *cobra.Command, p *kws.Config) error {
	f := cmd.Flags()
	var err error
	if f.Changed("history") {
		if p.Posterior.HistoryLength, err = f.GetUint32("history"); err != nil {
			return err
		}
	}
	if f.Changed("threshold") {
		if p.Posterior.TriggerThreshold, err = f.GetUint8("threshold"); err != nil {
			return err
		}
	}
	if f.Changed("suppression") {
		if p.Posterior.SuppressionMs, err = f.GetUint32("suppression"); err != nil {
			return err
		}
	}
	if f.Changed("labels") {
		if p.Labels, err = f.GetStringSlice("labels"); err != nil {
			return err
		}
	}
	if f.Changed("ignore") {
		ignore, err := f.GetStringSlice("ignore")
		if err != nil {
			return err
		}
		p.Ignore = nonEmpty(ignore)
	}
	return nil
}

// nonEmpty drops blank entries but always returns a non-nil slice, so an
// explicit empty list disables the default ignore set.
func nonEmpty(ss []string) []string {
	out := []string{}
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
