// Package cli holds the pieces shared by the kws command: stored
// contexts, output formatting, profile loading and terminal styling.
//
// Configuration lives in ~/.microkws/<app>/config.yaml and may define
// several named contexts, each a spotter profile plus the places its
// detections go (event log directory, notification URL, S3 export
// credentials). One context is current, similar to kubectl.
//
//	cfg, err := cli.LoadConfig("kws")
//	ctx, err := cfg.ResolveContext(name)
//	profile := ctx.SpotterConfig()
package cli
