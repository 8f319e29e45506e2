package ioformat

import (
	"bufio"
	"bytes"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/matching"
)

// PredictionLine is one entry of an instance prediction list.
type PredictionLine struct {
	MaskPath   string
	LabelID    int
	Confidence float64
}

// ReadPredictionList parses lines of "relative_mask_path label_id
// confidence". Mask paths are resolved against the list's directory and
// must stay inside predRoot. A mask listed twice keeps its first position
// and its last label and confidence.
func ReadPredictionList(fs fsutil.FileSystem, path, predRoot string) ([]PredictionLine, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, faults.User("unable to load prediction file %s: %v", path, err)
	}
	root, err := filepath.Abs(predRoot)
	if err != nil {
		return nil, faults.User("invalid prediction root %s: %v", predRoot, err)
	}
	listDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, faults.User("invalid prediction file path %s: %v", path, err)
	}

	var out []PredictionLine
	seen := make(map[string]int)
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts := strings.Fields(text)
		if len(parts) != 3 {
			return nil, faults.User("%s:%d: invalid instance prediction file, expected [rel path prediction] [label id prediction] [confidence prediction]", path, n)
		}
		if filepath.IsAbs(parts[0]) {
			return nil, faults.User("%s:%d: first entry in line must be a relative path", path, n)
		}
		mask := filepath.Join(listDir, parts[0])
		if !fsutil.Contains(root, mask) {
			return nil, faults.User("predicted mask %s in prediction text file %s points outside of prediction path", mask, path)
		}
		label, err := parseInt(parts[1])
		if err != nil {
			return nil, faults.User("%s:%d: invalid label id %q", path, n, parts[1])
		}
		conf, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || math.IsNaN(conf) || math.IsInf(conf, 0) {
			return nil, faults.User("%s:%d: invalid confidence %q", path, n, parts[2])
		}

		line := PredictionLine{MaskPath: mask, LabelID: int(label), Confidence: conf}
		if i, ok := seen[mask]; ok {
			out[i] = line
			continue
		}
		seen[mask] = len(out)
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, faults.User("unable to read prediction file %s: %v", path, err)
	}
	return out, nil
}

// LoadPredictions reads a prediction list and every mask it names.
func LoadPredictions(fs fsutil.FileSystem, path, predRoot string) ([]matching.PredictionMask, error) {
	lines, err := ReadPredictionList(fs, path, predRoot)
	if err != nil {
		return nil, err
	}
	preds := make([]matching.PredictionMask, 0, len(lines))
	for _, l := range lines {
		mask, err := ReadMask(fs, l.MaskPath)
		if err != nil {
			return nil, err
		}
		preds = append(preds, matching.PredictionMask{
			Source:     l.MaskPath,
			LabelID:    l.LabelID,
			Confidence: l.Confidence,
			Mask:       mask,
		})
	}
	return preds, nil
}
