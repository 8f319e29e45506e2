package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/scenebench/internal/db"
	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/gtcache"
	"github.com/banshee-data/scenebench/internal/instance"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/labels"
)

// cacheStore is a ground-truth cache that can also be inspected and cleared.
type cacheStore interface {
	gtcache.Cache
	Count(ctx context.Context) (int, error)
	reset(ctx context.Context) error
}

type fileStore struct{ *gtcache.File }

func (s fileStore) reset(context.Context) error { return s.Delete() }

type dbStore struct{ *db.GTCache }

func (s dbStore) reset(ctx context.Context) error {
	_, err := s.Clear(ctx)
	return err
}

func runCache(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("cache", stderr)
	filePath := fs.String("file", "", "ground-truth cache file")
	dbPath := fs.String("db", "", "sqlite results database holding the cache")
	gtDir := fs.String("gt", "", "ground-truth directory (warm only)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: scenebench cache (-file path | -db path) <stats|clear|warm> [-gt dir]")
		fs.PrintDefaults()
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return faults.User("missing cache action")
	}
	action := fs.Arg(0)
	// Flags may also follow the action.
	if err := parseFlags(fs, fs.Args()[1:]); err != nil {
		return err
	}
	if (*filePath == "") == (*dbPath == "") {
		return faults.User("exactly one of -file or -db is required")
	}

	var store cacheStore
	if *filePath != "" {
		store = fileStore{gtcache.NewFile(nil, *filePath)}
	} else {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open results database: %w", err)
		}
		defer database.Close()
		store = dbStore{db.NewGTCache(database)}
	}

	switch action {
	case "stats":
		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d cached scene(s)\n", n)
	case "clear":
		if err := store.reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ground-truth cache cleared")
	case "warm":
		if err := requireFlag("gt", *gtDir); err != nil {
			return err
		}
		n, err := warmCache(ctx, store, *gtDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "warmed %d scene(s)\n", n)
	default:
		return faults.User("unknown cache action: %s", action)
	}
	return nil
}

// warmCache extracts and stores the instances of every ground-truth file
// in dir that is not cached yet.
func warmCache(ctx context.Context, c gtcache.Cache, dir string) (int, error) {
	fsys := fsutil.OSFileSystem{}
	names, err := fsys.ReadDir(dir)
	if err != nil {
		return 0, faults.User("unable to list ground truth in %s: %v", dir, err)
	}
	reg := labels.ScanNetInstance()
	loader := gtcache.NewLoader(c)
	warmed := 0
	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".png" {
			continue
		}
		path := filepath.Join(dir, name)
		key, err := filepath.Abs(path)
		if err != nil {
			return warmed, err
		}
		_, err = loader.LoadOrCompute(ctx, key, func(context.Context) (instance.Scene, error) {
			ids, err := readInstanceIDs(fsys, path)
			if err != nil {
				return nil, err
			}
			return instance.Extract(ids, reg), nil
		})
		if err != nil {
			return warmed, faults.WithScene(err, name)
		}
		warmed++
	}
	return warmed, nil
}

func readInstanceIDs(fsys fsutil.FileSystem, path string) ([]int64, error) {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		img, err := ioformat.ReadLabelImage(fsys, path, false)
		if err != nil {
			return nil, err
		}
		return img.Pix, nil
	}
	return ioformat.ReadIDs(fsys, path)
}
