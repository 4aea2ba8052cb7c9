package seeplusplus

import (
	"testing"

	"github.com/mush1e/see-plus-plus/internal/httpparser"
)

func TestFromParsedCopiesFields(t *testing.T) {
	parsed := &httpparser.Request{
		Method:  "GET",
		Path:    "/hello",
		Version: "HTTP/1.1",
		Headers: map[string]string{"host": "x"},
		Body:    []byte("body"),
	}
	req := fromParsed(parsed)
	if req.Method != "GET" || req.Path != "/hello" || string(req.Body) != "body" {
		t.Fatalf("unexpected conversion: %+v", req)
	}
}

func TestRequestHeaderIsCaseInsensitive(t *testing.T) {
	req := &Request{Headers: map[string]string{"content-type": "application/json"}}
	if req.Header("Content-Type") != "application/json" {
		t.Fatalf("expected case-insensitive header lookup to succeed, got %q", req.Header("Content-Type"))
	}
}

func TestRequestParamAbsentReturnsEmpty(t *testing.T) {
	req := &Request{}
	if req.Param("id") != "" {
		t.Fatal("expected empty string for a request with no params")
	}
}
