package fuzzy

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mush1e/see-plus-plus/pkg/seeplusplus"
)

// FuzzRouterPaths verifies that route matching never panics on adversarial
// path strings, matched or not.
func FuzzRouterPaths(f *testing.F) {
	f.Add("/")
	f.Add("/test")
	f.Add("/users/123")
	f.Add("/api/v1/users/123/posts/456")
	f.Add("//double//slash")
	f.Add("/trailing/")
	f.Add("/with%20spaces")
	f.Add("/symbols/!@#$%^&*()")
	f.Add("/very/long/" + strings.Repeat("segment/", 50))
	f.Add("/with/../dots")
	f.Add("/with/./dot")
	f.Add("")
	f.Add("no-leading-slash")
	f.Add("/with\nnewline")
	f.Add("/with\ttab")

	router := seeplusplus.NewRouter()
	ok := seeplusplus.HandlerFunc(func(req *seeplusplus.Request, resp *seeplusplus.Response) error {
		resp.String(200, "ok")
		return nil
	})
	router.GET("/", ok)
	router.GET("/test", ok)
	router.GET("/users/:id", ok)
	router.GET("/api/v1/users/:userId/posts/:postId", ok)
	router.GET("/files/*path", ok)

	f.Fuzz(func(t *testing.T, path string) {
		if !utf8.ValidString(path) {
			t.Skip("invalid UTF-8")
		}
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Route panicked on path %q: %v", path, r)
			}
		}()

		req := &seeplusplus.Request{Method: "GET", Path: path}
		resp := &seeplusplus.Response{Headers: map[string]string{}}
		_, _ = router.Route(req, resp)
	})
}

// FuzzRouteParameters checks that extracted params always echo back exactly
// the path segment that was captured, for any well-formed user id string.
func FuzzRouteParameters(f *testing.F) {
	f.Add("123")
	f.Add("abc")
	f.Add("with-dash")
	f.Add("unicode-café")

	router := seeplusplus.NewRouter()
	router.GET("/users/:id", seeplusplus.HandlerFunc(func(req *seeplusplus.Request, resp *seeplusplus.Response) error {
		resp.String(200, seeplusplus.Param(req, "id"))
		return nil
	}))

	f.Fuzz(func(t *testing.T, id string) {
		if !utf8.ValidString(id) || id == "" || strings.Contains(id, "/") {
			t.Skip("not a single path segment")
		}
		req := &seeplusplus.Request{Method: "GET", Path: "/users/" + id}
		resp := &seeplusplus.Response{Headers: map[string]string{}}
		matched, err := router.Route(req, resp)
		if !matched || err != nil {
			t.Fatalf("expected a match for id %q, got matched=%v err=%v", id, matched, err)
		}
		if string(resp.Body) != id {
			t.Fatalf("expected captured id %q, got %q", id, resp.Body)
		}
	})
}
