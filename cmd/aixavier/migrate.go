package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/Dv04/aixavier/internal/db"
)

func handleMigrate(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "events.db", "SQLite event store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: migrate [-db path] up|down|version|force <n>|to <n>")
	}

	store, err := db.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return migrateCommand(store, fs.Arg(0), fs.Args()[1:], w)
}

func migrateCommand(store *db.DB, action string, rest []string, w io.Writer) error {
	migrations := db.MigrationsFS()
	switch action {
	case "up":
		if err := store.MigrateUp(migrations); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(migrations); err != nil {
			return err
		}
	case "force", "to":
		if len(rest) < 1 {
			return fmt.Errorf("migrate %s needs a version", action)
		}
		v, err := strconv.Atoi(rest[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version %q", rest[0])
		}
		if action == "force" {
			err = store.MigrateForce(migrations, v)
		} else {
			err = store.MigrateTo(migrations, uint(v))
		}
		if err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}

	v, dirty, err := store.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
