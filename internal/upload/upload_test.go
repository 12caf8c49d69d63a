package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/smartstudy/internal/apperr"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestCheck(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		ok   bool
	}{
		{"so_do.png", pngBytes, true},
		{"SO_DO.PNG", pngBytes, true},
		{"giaotrinh.pdf", []byte("%PDF-1.7\n"), true},
		{"ghi_am.mp3", []byte("ID3\x03\x00\x00\x00"), true},
		{"bai_tap.docx", []byte("PK\x03\x04\x14\x00"), true},
		{"ghi_chu.md", []byte("# Chuong 1\n"), true},
		{"logo.svg", []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"/>`), true},
		{"logo.svg", []byte("<html></html>"), false},
		{"so_do.png", []byte("not a png"), false},
		{"giaotrinh.pdf", pngBytes, false},
		{"setup.exe", []byte("MZ"), false},
		{"noext", pngBytes, false},
		{"empty.txt", nil, false},
	}
	for _, tc := range cases {
		_, err := Check(tc.name, tc.data)
		if tc.ok && err != nil {
			t.Errorf("Check(%s) = %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Check(%s) = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestCheck_TooLarge(t *testing.T) {
	data := make([]byte, MaxSize+1)
	copy(data, pngBytes)
	if _, err := Check("big.png", data); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"so do.png":         "so_do.png",
		"../../etc/passwd":  "passwd",
		`..\windows\a.pdf`:  "a.pdf",
		".hidden":           "hidden",
		"bài giảng.pdf":     "b_i_gi_ng.pdf",
		"ok-name_1.2.webm":  "ok-name_1.2.webm",
		"/abs/path/ghi.wav": "ghi.wav",
	}
	for in, want := range cases {
		if got := CleanName(in, ""); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := CleanName("...", ".png"); !strings.HasSuffix(got, ".png") || len(got) < 10 {
		t.Errorf("empty name fallback = %q", got)
	}
}

func TestLookupAndExtForMIME(t *testing.T) {
	if f, ok := Lookup("PDF"); !ok || f.MIME != "application/pdf" {
		t.Errorf("Lookup(PDF) = %+v %v", f, ok)
	}
	if _, ok := Lookup(".exe"); ok {
		t.Error("exe accepted")
	}
	if ext := ExtForMIME("image/jpeg; q=1"); ext != ".jpg" {
		t.Errorf("ExtForMIME(jpeg) = %q", ext)
	}
	if ext := ExtForMIME("application/x-msdownload"); ext != "" {
		t.Errorf("ExtForMIME(exe) = %q", ext)
	}
}

func TestDecodeDataURI(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngBytes)
	data, ext, err := DecodeDataURI("data:image/png;base64," + enc)
	if err != nil {
		t.Fatal(err)
	}
	if ext != ".png" || !bytes.Equal(data, pngBytes) {
		t.Errorf("got ext %q, %d bytes", ext, len(data))
	}

	raw := base64.RawStdEncoding.EncodeToString([]byte("%PDF-1.4"))
	if _, ext, err := DecodeDataURI("data:application/pdf;base64," + raw); err != nil || ext != ".pdf" {
		t.Errorf("unpadded base64: ext %q, err %v", ext, err)
	}

	bad := []string{
		"data:image/png;base64",
		"data:image/png,raw",
		"data:application/x-msdownload;base64,aGk=",
		"data:image/png;base64,!!!",
	}
	for _, uri := range bad {
		if _, _, err := DecodeDataURI(uri); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("DecodeDataURI(%q) = %v, want ErrValidation", uri, err)
		}
	}
}

func TestNameFromURL(t *testing.T) {
	if got := NameFromURL("https://example.com/docs/giaotrinh.pdf?x=1", ".pdf"); got != "giaotrinh.pdf" {
		t.Errorf("got %q", got)
	}
	if got := NameFromURL("https://example.com/download", ""); !strings.HasSuffix(got, ".bin") {
		t.Errorf("no extension = %q", got)
	}
	if got := NameFromURL("data:image/png;base64,AAAA", ".png"); !strings.HasSuffix(got, ".png") {
		t.Errorf("data URI = %q", got)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/so_do.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		case "/moved":
			http.Redirect(w, r, "/so_do.png", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()
	f.blocked = func(net.IP) bool { return false }

	data, ext, err := f.Fetch(context.Background(), srv.URL+"/moved")
	if err != nil {
		t.Fatal(err)
	}
	if ext != ".png" || !bytes.Equal(data, pngBytes) {
		t.Errorf("got ext %q, %d bytes", ext, len(data))
	}

	if _, _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetch_BlocksInternalHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewFetcher()
	f.lookup = func(host string) ([]net.IP, error) {
		// A public address listed first must not hide a private one.
		return []net.IP{net.ParseIP("93.184.216.34"), net.ParseIP("169.254.169.254")}, nil
	}

	urls := []string{
		srv.URL + "/a.png",
		"http://localhost/a.png",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/a.png",
		"http://metadata.google.internal/",
		"http://rebind.example/a.png",
		"ftp://example.com/a.png",
	}
	for _, u := range urls {
		if _, _, err := f.Fetch(context.Background(), u); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Fetch(%s) = %v, want ErrValidation", u, err)
		}
	}
}

func TestFetch_BlocksRedirectToInternalHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/secret.png", http.StatusFound)
			return
		}
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewFetcher()
	// Only the first hop is allowed through.
	first := true
	f.blocked = func(ip net.IP) bool {
		if first {
			first = false
			return false
		}
		return blockedIP(ip)
	}
	if _, _, err := f.Fetch(context.Background(), srv.URL+"/"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("redirect to loopback = %v, want ErrValidation", err)
	}
}
