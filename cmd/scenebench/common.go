package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/banshee-data/scenebench/internal/config"
	"github.com/banshee-data/scenebench/internal/db"
	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/monitoring"
	"github.com/banshee-data/scenebench/internal/pipeline"
)

// evalFlags are shared by the scoring subcommands.
type evalFlags struct {
	dbPath  string
	workers int
	html    string
	verbose bool
}

func (f *evalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.dbPath, "db", "", "sqlite results database; the run is recorded when set")
	fs.IntVar(&f.workers, "workers", 0, "parallel scenes (0 uses the config value or GOMAXPROCS)")
	fs.StringVar(&f.html, "html", "", "write an HTML chart page to this path")
	fs.BoolVar(&f.verbose, "v", false, "verbose logging")
}

func (f *evalFlags) apply() {
	monitoring.SetVerbose(f.verbose)
}

// openDB opens and migrates the results database, or returns nil when no
// path was given.
func (f *evalFlags) openDB() (*db.DB, error) {
	if f.dbPath == "" {
		return nil, nil
	}
	database, err := db.NewDB(f.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	return database, nil
}

func loadConfig(path string) (*config.EvalConfig, error) {
	if path == "" {
		return &config.EvalConfig{}, nil
	}
	return config.Load(path)
}

func requireFlag(name, value string) error {
	if value == "" {
		return faults.User("-%s is required", name)
	}
	return nil
}

// writeFile creates path and streams render into it.
func writeFile(path string, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := render(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printFailures(w io.Writer, failures pipeline.Failures) {
	for _, f := range failures {
		fmt.Fprintf(w, "skipped %s: %s\n", f.Scene, f.Message())
	}
	if n := len(failures); n > 0 {
		fmt.Fprintf(w, "%d scene(s) failed and were excluded from the scores\n", n)
	}
}
