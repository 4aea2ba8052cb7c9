package seeplusplus

import (
	"strings"
	"testing"
)

func TestResponseBytesWireFormat(t *testing.T) {
	r := newResponse("test/1.0")
	r.String(200, "Hello")
	r.SetHeader("Connection", "close")

	out := string(r.Bytes())
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Fatalf("expected Content-Length: 5, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nHello") {
		t.Fatalf("expected body to trail the blank line, got %q", out)
	}
}

func TestResponseJSON(t *testing.T) {
	r := newResponse("test/1.0")
	if err := r.JSON(200, map[string]string{"k": "v"}); err != nil {
		t.Fatal(err)
	}
	if r.Headers["Content-Type"] != "application/json" {
		t.Fatalf("expected json content type, got %q", r.Headers["Content-Type"])
	}
	if string(r.Body) != `{"k":"v"}` {
		t.Fatalf("unexpected body: %s", r.Body)
	}
}

func TestNewResponseDefaultsTo500(t *testing.T) {
	r := newResponse("test/1.0")
	if r.Status != 500 {
		t.Fatalf("expected default status 500, got %d", r.Status)
	}
	if r.Headers["Server"] != "test/1.0" {
		t.Fatalf("expected server header to be set, got %q", r.Headers["Server"])
	}
}
