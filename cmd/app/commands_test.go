package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := "app:\n  log_level: error\n  http:\n    port: 8080\n" +
		"store:\n  driver: sqlite\n  path: " + filepath.Join(dir, "smartstudy.db") + "\n" +
		"files:\n  path: " + filepath.Join(dir, "files") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().Run(context.Background(), append([]string{"smartstudy"}, args...))
}

func TestTrashRestore_UnknownIDIsNoop(t *testing.T) {
	cfg, _ := writeConfig(t)
	if err := runApp(t, "-c", cfg, "trash", "restore", "does-not-exist"); err != nil {
		t.Errorf("restore of unknown id = %v, want nil", err)
	}
}

func TestRestoreMessage(t *testing.T) {
	if got := restoreMessage("tr-1", true); got != "restored tr-1" {
		t.Errorf("restored message = %q", got)
	}
	if got := restoreMessage("tr-1", false); !strings.Contains(got, "nothing to restore") {
		t.Errorf("no-op message = %q", got)
	}
}

func TestTrashRestore_RequiresID(t *testing.T) {
	cfg, _ := writeConfig(t)
	if err := runApp(t, "-c", cfg, "trash", "restore"); err == nil {
		t.Error("restore without id should fail")
	}
}

func TestExport_WritesBundle(t *testing.T) {
	cfg, dir := writeConfig(t)
	out := filepath.Join(dir, "out", "bundle.json")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := runApp(t, "-c", cfg, "export", "--out", out, "--subject", "1"); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), `"appName"`) || !strings.Contains(string(data), "Toán Cao Cấp") {
		t.Errorf("bundle = %s", data)
	}
	if strings.Contains(string(data), "Lập Trình Web") {
		t.Error("unselected subject exported")
	}
}
