// Command aixavier runs the edge video-analytics pipeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Dv04/aixavier/internal/db"
	"github.com/Dv04/aixavier/internal/events"
	"github.com/Dv04/aixavier/internal/monitoring"
	"github.com/Dv04/aixavier/internal/pipeline"
	"github.com/Dv04/aixavier/internal/posemon"
	"github.com/Dv04/aixavier/internal/rules"
	"github.com/Dv04/aixavier/internal/tracking"
	"github.com/Dv04/aixavier/internal/version"
	"github.com/Dv04/aixavier/internal/vision/detector"
)

var (
	devMode = flag.Bool("dev", false, "Use the development console logger")
	verbose = flag.Bool("v", false, "Enable diagnostic logging")
	trace   = flag.Bool("trace", false, "Enable per-frame trace logging")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := setupLogging(os.Stderr, *devMode, *verbose, *trace); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
		os.Exit(1)
	}
	defer monitoring.Sync()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "run":
		err = handleRun(args)
	case "rules":
		err = handleRules(args)
	case "demo":
		err = handleDemo(args, os.Stdout)
	case "migrate":
		err = handleMigrate(args, os.Stdout)
	case "events":
		err = handleEvents(args, os.Stdout)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`aixavier - edge video analytics

Usage: aixavier [-dev] [-v] [-trace] <command> [options]

Commands:
  run        Follow a frames log and run detectors, trackers and use cases
  rules      Evaluate use cases over an existing event log
  demo       Run the pose monitor over a synthetic falling person
  migrate    Manage the event store schema (up, down, version)
  events     Summarise and list records in the event store
  version    Show version information
  help       Show this help message

Examples:
  aixavier run -frames frames.log -detector configs/detectors/person.yaml -usecases configs/usecases
  aixavier rules -in events.log -out usecases.log -usecases configs/usecases
  aixavier migrate -db events.db version
  aixavier events -db events.db -type pose.collapse -limit 10`)
}

// setupLogging installs the process logger and points every package's
// ops stream at w. Diag and trace streams stay disabled unless requested.
func setupLogging(w io.Writer, dev, diag, tr bool) error {
	initLogger := monitoring.InitProduction
	if dev {
		initLogger = monitoring.InitDevelopment
	}
	if err := initLogger(); err != nil {
		return err
	}

	var diagW, traceW io.Writer
	if diag || tr {
		diagW = w
	}
	if tr {
		traceW = w
	}
	for _, set := range []func(ops, diag, trace io.Writer){
		db.SetLogWriters,
		events.SetLogWriters,
		pipeline.SetLogWriters,
		posemon.SetLogWriters,
		rules.SetLogWriters,
		tracking.SetLogWriters,
		detector.SetLogWriters,
	} {
		set(w, diagW, traceW)
	}
	monitoring.Logf("aixavier %s", version.String())
	return nil
}
