package ioformat

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
)

// ReadSceneTypes parses lines of "scan_name type_id".
func ReadSceneTypes(fs fsutil.FileSystem, path string) (map[string]int, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, faults.User("unable to load %s: %v", path, err)
	}
	out := make(map[string]int)
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			return nil, faults.User("%s:%d: expected [scan name] [scene type id]", path, n)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, faults.User("%s:%d: scene type %q is not an integer", path, n, parts[1])
		}
		out[parts[0]] = id
	}
	if err := sc.Err(); err != nil {
		return nil, faults.User("unable to read %s: %v", path, err)
	}
	return out, nil
}
