package ioformat

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
)

// Pair is a result file and its ground truth. Key is the absolute ground
// truth path used to identify the scene.
type Pair struct {
	Name string
	Pred string
	GT   string
	Key  string
}

// PairFiles matches every file in predDir with extension ext to the file of
// the same name in gtDir. Names in exclude are skipped. Missing ground truth
// for any result, or no results at all, is a user fault.
func PairFiles(fs fsutil.FileSystem, predDir, gtDir, ext string, exclude []string) ([]Pair, error) {
	return PairFilesAs(fs, predDir, gtDir, ext, "", exclude)
}

// PairFilesAs is PairFiles for ground truth stored under another extension,
// such as prediction lists scored against PNG label images. An empty gtExt
// keeps the result file's name.
func PairFilesAs(fs fsutil.FileSystem, predDir, gtDir, ext, gtExt string, exclude []string) ([]Pair, error) {
	names, err := fs.ReadDir(predDir)
	if err != nil {
		return nil, faults.User("unable to list predictions in %s: %v", predDir, err)
	}
	var pairs []Pair
	for _, name := range names {
		if !strings.EqualFold(filepath.Ext(name), ext) || slices.Contains(exclude, name) {
			continue
		}
		gtName := name
		if gtExt != "" {
			gtName = strings.TrimSuffix(name, filepath.Ext(name)) + gtExt
		}
		gt := filepath.Join(gtDir, gtName)
		if !fs.Exists(gt) {
			return nil, faults.User("result file %s does not match any gt file", name)
		}
		key, err := filepath.Abs(gt)
		if err != nil {
			return nil, faults.User("invalid ground truth path %s: %v", gt, err)
		}
		pairs = append(pairs, Pair{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Pred: filepath.Join(predDir, name),
			GT:   gt,
			Key:  key,
		})
	}
	if len(pairs) == 0 {
		return nil, faults.User("no result files found in %s", predDir)
	}
	return pairs, nil
}
