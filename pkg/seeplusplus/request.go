package seeplusplus

import "github.com/mush1e/see-plus-plus/internal/httpparser"

// Request is the request a Handler sees: the parsed wire request plus any
// route parameters the Router extracted while matching it.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers map[string]string
	Body    []byte

	BodyKind httpparser.BodyKind
	Form     map[string]string

	// Params holds route parameters (":id" style) extracted by the Router.
	// Populated by Router.Route before the handler runs; nil if the matched
	// route had none.
	Params map[string]string
}

// fromParsed copies a httpparser.Request into the public Request shape,
// so application handlers never depend on the internal parser package.
func fromParsed(r *httpparser.Request) *Request {
	return &Request{
		Method:   r.Method,
		Path:     r.Path,
		Version:  r.Version,
		Headers:  r.Headers,
		Body:     r.Body,
		BodyKind: r.BodyKind,
		Form:     r.Form,
	}
}

// Header returns the value of the named header, case-insensitively, or "".
func (r *Request) Header(name string) string {
	return r.Headers[lowerASCII(name)]
}

// Param returns a route parameter by name, or "" if absent.
func (r *Request) Param(name string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[name]
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
