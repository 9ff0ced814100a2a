// kws replays keyword-spotting classifier output through the posterior
// handler and reports detections.
//
// Usage:
//
//	kws run capture.yaml                     # replay with the current context
//	kws run -c board s3://captures/a.msgpack # replay from S3 with a named context
//	kws events list --since 1h               # recorded detections
//	kws events export s3://exports/board     # archive detections as JSONL
//	kws config context set board --history 50 --threshold 200
//
// Configuration is stored in ~/.microkws/kws/
package main

import (
	"os"

	"github.com/OscarSR27/ESDML-Lab2/cmd/kws/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
