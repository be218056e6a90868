package http_test

import (
	"bytes"
	"testing"

	"pondos/pkg/http"
)

func TestBuildRequest(t *testing.T) {
	req := http.BuildRequest("example.com", "/index.html")

	want := "GET /index.html HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: close\r\n" +
		"User-Agent: " + http.UserAgent + "\r\n\r\n"
	if string(req) != want {
		t.Errorf("request = %q, want %q", req, want)
	}
}

func TestBuildRequestDefaultsPath(t *testing.T) {
	req := http.BuildRequest("example.com", "")
	if !bytes.HasPrefix(req, []byte("GET / HTTP/1.1\r\n")) {
		t.Errorf("request line = %q, want GET /", req[:16])
	}
}

func TestBody(t *testing.T) {
	resp := []byte("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<html>hi</html>")
	if got := http.Body(resp); string(got) != "<html>hi</html>" {
		t.Errorf("Body = %q, want %q", got, "<html>hi</html>")
	}
}

func TestBodyWithoutTerminatorReturnsRaw(t *testing.T) {
	resp := []byte("HTTP/1.1 200 OK\r\npartial headers")
	if got := http.Body(resp); !bytes.Equal(got, resp) {
		t.Errorf("Body = %q, want the raw response", got)
	}
}

func TestBodyKeepsEmbeddedBlankLines(t *testing.T) {
	resp := []byte("HTTP/1.1 200 OK\r\n\r\nline one\r\n\r\nline two")
	if got := http.Body(resp); string(got) != "line one\r\n\r\nline two" {
		t.Errorf("Body = %q", got)
	}
}

func TestHeaderEnd(t *testing.T) {
	resp := []byte("HTTP/1.1 200 OK\r\n\r\nbody")
	if got := http.HeaderEnd(resp); got != 19 {
		t.Errorf("HeaderEnd = %d, want 19", got)
	}
	if got := http.HeaderEnd([]byte("no terminator")); got != -1 {
		t.Errorf("HeaderEnd = %d, want -1", got)
	}
}
