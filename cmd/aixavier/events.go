package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/Dv04/aixavier/internal/db"
)

func handleEvents(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	dbPath := fs.String("db", "events.db", "SQLite event store")
	typ := fs.String("type", "", "Only records of this type")
	camera := fs.String("camera", "", "Only records from this camera")
	since := fs.Float64("since", 0, "Only records at or after this Unix timestamp")
	limit := fs.Int("limit", 20, "Maximum records to print, newest first; 0 prints counts only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := db.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	q := db.EventQuery{Type: *typ, CameraID: *camera, Since: *since, Limit: *limit}
	return eventsCommand(context.Background(), store, q, w)
}

// eventsCommand prints per-type totals followed by the records matching q
// as JSON lines. A non-positive q.Limit prints the totals only.
func eventsCommand(ctx context.Context, store *db.DB, q db.EventQuery, w io.Writer) error {
	counts, err := store.EventCounts(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	total := 0
	for _, typ := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "%-24s %d\n", typ, counts[typ])
		total += counts[typ]
	}
	fmt.Fprintf(w, "%-24s %d\n", "total", total)

	if q.Limit <= 0 {
		return nil
	}
	recs, err := store.Events(ctx, q)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
