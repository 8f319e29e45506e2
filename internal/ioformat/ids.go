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
)

// ReadIDs reads one integer per line. Blank lines are ignored and values
// written as whole floats ("5.0") are accepted.
func ReadIDs(fs fsutil.FileSystem, path string) ([]int64, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, faults.User("unable to load %s: %v", path, err)
	}
	var ids []int64
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := parseInt(text)
		if err != nil {
			return nil, faults.User("%s:%d: %v", path, line, err)
		}
		ids = append(ids, v)
	}
	if err := sc.Err(); err != nil {
		return nil, faults.User("unable to read %s: %v", path, err)
	}
	return ids, nil
}

func parseInt(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, faults.User("invalid integer %q", s)
	}
	return int64(f), nil
}

// ReadMask reads a binary mask: a PNG (any non-zero pixel is set) or a text
// file with one value per line (non-zero is set).
func ReadMask(fs fsutil.FileSystem, path string) ([]bool, error) {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		img, err := ReadLabelImage(fs, path, false)
		if err != nil {
			return nil, err
		}
		mask := make([]bool, len(img.Pix))
		for i, v := range img.Pix {
			mask[i] = v != 0
		}
		return mask, nil
	}
	ids, err := ReadIDs(fs, path)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(ids))
	for i, v := range ids {
		mask[i] = v != 0
	}
	return mask, nil
}
