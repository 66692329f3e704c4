package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dv04/aixavier/internal/events"
	"github.com/Dv04/aixavier/internal/monitoring"
	"github.com/Dv04/aixavier/internal/rules"
)

func handleRules(args []string) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	in := fs.String("in", "", "Event log to evaluate (required)")
	outPath := fs.String("out", "", "Event log for use-case events (required)")
	dir := fs.String("usecases", "", "Directory of use-case YAML files (required)")
	dbPath := fs.String("db", "", "Also record use-case events in this SQLite store")
	follow := fs.Bool("follow", false, "Keep following the input log")
	poll := fs.Duration("poll", 500*time.Millisecond, "Poll interval when following")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *outPath == "" || *dir == "" {
		return fmt.Errorf("-in, -out and -usecases are required")
	}
	if *in == *outPath {
		return fmt.Errorf("-in and -out must differ")
	}

	usecases, err := rules.LoadUseCases(*dir)
	if err != nil {
		return err
	}
	out, err := openOutputs(*outPath, *dbPath, "")
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tail := events.NewTailer(*in, *poll)
	n, err := evaluateLog(ctx, tail, rules.NewEngine(usecases), out.sink, *follow)
	monitoring.Logf("rules: %d use-case events from %s", n, *in)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// evaluateLog runs every record of the log through engine and publishes
// the use-case events to sink. Without follow it reads what is present and
// returns. Records already produced by a use case are not re-evaluated.
func evaluateLog(ctx context.Context, tail *events.Tailer, engine *rules.Engine, sink events.Sink, follow bool) (int, error) {
	own := make(map[string]bool)
	for _, uc := range engine.UseCases() {
		own[uc.ID] = true
	}

	fired := 0
	fn := events.DecodeRecords(func(r events.Record) error {
		if own[r.Type] {
			return nil
		}
		for _, ev := range engine.Evaluate(r) {
			if err := sink.Publish(ctx, ev); err != nil {
				return err
			}
			fired++
		}
		return nil
	}, func(line []byte, err error) {
		monitoring.Logf("rules: skipping malformed line: %v", err)
	})

	if follow {
		return fired, tail.Follow(ctx, fn)
	}
	_, err := tail.Poll(fn)
	return fired, err
}
