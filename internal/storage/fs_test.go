package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/smartstudy/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func noTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0xff}
	if err := s.Write("upload.webm", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("upload.webm")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWrite_ReplacesAndCreatesSubdirs(t *testing.T) {
	s := tempStore(t)
	if err := s.Write("exports/a.json", []byte("v1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("exports/a.json", []byte("v2")); err != nil {
		t.Fatalf("Write again: %v", err)
	}
	got, _ := s.Read("exports/a.json")
	if string(got) != "v2" {
		t.Errorf("content = %q, want v2", got)
	}
	noTempFiles(t, filepath.Join(s.Root(), "exports"))
}

func TestCreate_RefusesExisting(t *testing.T) {
	s := tempStore(t)
	if err := s.Create("so_do.png", []byte("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("so_do.png", []byte("second"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("so_do.png")
	if string(got) != "first" {
		t.Errorf("content = %q, original must survive", got)
	}
	noTempFiles(t, s.Root())
}

func TestMissingFilesAreNotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Read("nope.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read = %v", err)
	}
	if _, err := s.Stat("nope.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Stat = %v", err)
	}
	if _, _, err := s.Open("nope.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Open = %v", err)
	}
	if err := s.Delete("nope.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete = %v", err)
	}

	_ = s.Write("dir/file.txt", []byte("x"))
	if _, err := s.Stat("dir"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Stat on a directory = %v", err)
	}
}

func TestStatAndOpen(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("notes/bai_giang.pdf", []byte("%PDF-1.4 body"))

	info, err := s.Stat("notes/bai_giang.pdf")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Path != "notes/bai_giang.pdf" || info.Size != 13 || info.UpdatedAt.IsZero() {
		t.Errorf("info = %+v", info)
	}

	rc, info2, err := s.Open("notes/bai_giang.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if info2 != info {
		t.Errorf("Open info = %+v, Stat info = %+v", info2, info)
	}
	if _, err := rc.Seek(9, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	rest, _ := io.ReadAll(rc)
	if string(rest) != "body" {
		t.Errorf("after seek = %q", rest)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del.png", []byte("bye"))
	if err := s.Delete("del.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.png"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("drop.json", []byte("data"))
	if err := s.Move("drop.json", ".processed/drop.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read(".processed/drop.json")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("drop.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a.json", []byte("a"))
	_ = s.Write("sub/b.json", []byte("b"))
	_ = s.Write("readme.txt", []byte("not json"))
	_ = s.Write(".processed/c.json", []byte("hidden"))

	items, err := s.List("", "**/*.json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2: %+v", len(items), items)
	}

	sub, err := s.List("sub", "**/*.json")
	if err != nil {
		t.Fatalf("List sub: %v", err)
	}
	if len(sub) != 1 || sub[0].Path != "sub/b.json" {
		t.Errorf("sub = %+v, paths stay root-relative", sub)
	}

	all, err := s.List("", "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
	for _, it := range all {
		if it.Size == 0 || it.UpdatedAt.IsZero() {
			t.Errorf("incomplete info: %+v", it)
		}
	}
}

func TestList_InvalidPattern(t *testing.T) {
	s := tempStore(t)
	if _, err := s.List("", "[unclosed"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for read of %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Create(p, []byte("x")); err == nil {
			t.Errorf("expected error for create of %q", p)
		}
	}
	if _, err := s.List("..", ""); err == nil {
		t.Error("expected error listing outside the root")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(path); err == nil {
		t.Error("expected error when root is a file")
	}
}
