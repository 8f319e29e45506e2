package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_RenameAndReadDir(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()

	tmp := filepath.Join(dir, "cache.json.tmp")
	if err := fs.WriteFile(tmp, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := fs.Rename(tmp, filepath.Join(dir, "cache.json")); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	names, err := fs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(names) != 1 || names[0] != "cache.json" {
		t.Errorf("expected only cache.json, got %v", names)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("5001\n5001\n0\n")
	if err := mfs.WriteFile("/gt/scene0000_00.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/gt/scene0000_00.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	// Returned data must be a copy.
	data[0] = 'x'
	again, _ := mfs.ReadFile("/gt/scene0000_00.txt")
	if again[0] != '5' {
		t.Error("ReadFile returned shared storage")
	}

	if !mfs.Exists("/gt") {
		t.Error("parent directory should exist after WriteFile")
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/a.txt", []byte("abc"), 0644)

	f, err := mfs.Open("/a.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || string(data) != "abc" {
		t.Errorf("got %q, %v", data, err)
	}
	info, err := f.Stat()
	if err != nil || info.Size() != 3 || info.Name() != "a.txt" {
		t.Errorf("unexpected stat %v, %v", info, err)
	}

	if _, err := mfs.Open("/missing"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/pred/b.txt", nil, 0644)
	_ = mfs.WriteFile("/pred/a.txt", nil, 0644)
	_ = mfs.WriteFile("/pred/masks/a_000.txt", nil, 0644)

	names, err := mfs.ReadDir("/pred")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Errorf("unexpected listing %v", names)
	}

	if _, err := mfs.ReadDir("/nope"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_RenameAndRemove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/c.tmp", []byte("x"), 0644)

	if err := mfs.Rename("/c.tmp", "/c.json"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mfs.Exists("/c.tmp") || !mfs.Exists("/c.json") {
		t.Error("rename did not move the file")
	}
	if err := mfs.Rename("/c.tmp", "/d"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	if err := mfs.Remove("/c.json"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := mfs.Remove("/c.json"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/data/scans", 0755)
	_ = mfs.WriteFile("/data/scans/x.txt", []byte("12345"), 0600)

	info, err := mfs.Stat("/data")
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory, got %v, %v", info, err)
	}
	info, err = mfs.Stat("/data/scans/x.txt")
	if err != nil || info.Size() != 5 || info.Mode() != 0600 {
		t.Errorf("unexpected stat %v, %v", info, err)
	}
}

func TestWithinRoot(t *testing.T) {
	cases := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{"pred_mask/a.txt", "/pred/pred_mask/a.txt", false},
		{"./x/../y.txt", "/pred/y.txt", false},
		{"/etc/passwd", "", true},
		{"../other/a.txt", "", true},
		{"..", "", true},
		{"x/../../a.txt", "", true},
	}
	for _, tc := range cases {
		got, err := WithinRoot("/pred", tc.rel)
		if (err != nil) != tc.wantErr {
			t.Errorf("WithinRoot(%q) error = %v, wantErr %v", tc.rel, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("WithinRoot(%q) = %q, want %q", tc.rel, got, tc.want)
		}
	}
}

func TestContains(t *testing.T) {
	if !Contains("/pred", "/pred/pred_mask/a.txt") {
		t.Error("expected nested path to be inside root")
	}
	if Contains("/pred", "/prediction/a.txt") {
		t.Error("sibling with shared prefix must not count as inside")
	}
	if Contains("/pred", "/pred/../etc") {
		t.Error("escaping path must not count as inside")
	}
}
