package main

import (
	"io"

	"github.com/banshee-data/scenebench/internal/db"
)

func runMigrate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", "scenebench.db", "sqlite results database")
	fs.Usage = func() { db.PrintMigrateHelp(stderr) }
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return db.RunMigrateCommand(stdout, fs.Args(), *dbPath)
}
