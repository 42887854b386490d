package cmd

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tanq16/imgdl/internal/utils"
)

func servePNG(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 6))); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Write(buf.Bytes())
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestBatchCommand(t *testing.T) {
	server := servePNG(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "images")
	list := filepath.Join(dir, "urls.txt")
	content := server.URL + "/a.png\n\n" + server.URL + "/b.png\n"
	if err := os.WriteFile(list, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "batch", list, "-o", out, "-w", "2", "-f", "jpg", "--log-file", filepath.Join(dir, "imgdl.log"))
	if err != nil {
		t.Fatalf("batch error = %v", err)
	}
	for _, name := range []string{"a.png", "a.jpg", "b.png", "b.jpg"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "imgdl.log")); !bytes.Contains(data, []byte("Download succeeded")) {
		t.Errorf("log file does not record outcomes:\n%s", data)
	}
}

func TestBatchCommandReportsFailures(t *testing.T) {
	server := servePNG(t)
	dir := t.TempDir()
	list := filepath.Join(dir, "urls.yaml")
	content := "- link: " + server.URL + "/a.png\n  name: cover.png\n- link: " + server.URL + "/missing\n"
	if err := os.WriteFile(list, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "batch", list, "-o", dir, "-r", "1", "-f", "", "--log-file", filepath.Join(dir, "imgdl.log"))
	if err != errFailedOperations {
		t.Fatalf("batch error = %v, want %v", err, errFailedOperations)
	}
	if _, err := os.Stat(filepath.Join(dir, "cover.png")); err != nil {
		t.Errorf("successful entry not saved: %v", err)
	}
}

func TestSingleDownloadFlagsDoNotCarryOver(t *testing.T) {
	server := servePNG(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "imgdl.log")

	if err := execute(t, server.URL+"/a.png", "-o", dir, "-n", "custom.png", "--log-file", logFile); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if err := execute(t, server.URL+"/b.png", "-o", dir, "--log-file", logFile); err != nil {
		t.Fatalf("second run error = %v", err)
	}
	for _, name := range []string{"custom.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "a.png")); !os.IsNotExist(err) {
		t.Errorf("a.png should not exist, the first run was named custom.png")
	}
}

func TestSaveDirIsFile(t *testing.T) {
	server := servePNG(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	err := execute(t, server.URL+"/a.png", "-o", file, "--log-file", filepath.Join(dir, "imgdl.log"))
	if !utils.IsConfigError(err) {
		t.Errorf("error = %v, want ConfigError", err)
	}
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png.part", "b.jpg.part", "keep.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := execute(t, "clean", dir); err != nil {
		t.Fatalf("clean error = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "keep.png" {
		t.Errorf("remaining files = %v", entries)
	}
}

func TestSingleURL(t *testing.T) {
	if got, err := singleURL([]string{"http://x/a.png"}, false); err != nil || got != "http://x/a.png" {
		t.Errorf("singleURL() = %q, %v", got, err)
	}
	if _, err := singleURL(nil, false); !utils.IsConfigError(err) {
		t.Errorf("singleURL(nil) error = %v, want ConfigError", err)
	}
	if _, err := singleURL([]string{"http://x/a.png"}, true); !utils.IsConfigError(err) {
		t.Errorf("singleURL(url, clipboard) error = %v, want ConfigError", err)
	}
}
