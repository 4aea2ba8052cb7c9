package seeplusplus

import (
	"fmt"
	"strings"
)

// Router is an exact-match-first, pattern-fallback dispatcher from
// (method, path) to a Handler, per the routing contract: Route populates
// resp and reports whether anything matched; a false return means the
// caller (RequestTask) composes the 404.
type Router struct {
	routes      map[string]*routeNode
	middlewares []Middleware
}

type routeNode struct {
	segment   string
	handler   Handler
	children  map[string]*routeNode
	isParam   bool
	paramName string
	isWild    bool
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]*routeNode)}
}

// Use appends middleware run around every matched handler, outermost-first.
func (r *Router) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// GET registers h for GET path.
func (r *Router) GET(path string, h Handler) { r.addRoute("GET", path, h) }

// POST registers h for POST path.
func (r *Router) POST(path string, h Handler) { r.addRoute("POST", path, h) }

// PUT registers h for PUT path.
func (r *Router) PUT(path string, h Handler) { r.addRoute("PUT", path, h) }

// DELETE registers h for DELETE path.
func (r *Router) DELETE(path string, h Handler) { r.addRoute("DELETE", path, h) }

// PATCH registers h for PATCH path.
func (r *Router) PATCH(path string, h Handler) { r.addRoute("PATCH", path, h) }

// HEAD registers h for HEAD path.
func (r *Router) HEAD(path string, h Handler) { r.addRoute("HEAD", path, h) }

// OPTIONS registers h for OPTIONS path.
func (r *Router) OPTIONS(path string, h Handler) { r.addRoute("OPTIONS", path, h) }

// Handle registers h for an arbitrary method and path.
func (r *Router) Handle(method, path string, h Handler) { r.addRoute(method, path, h) }

func (r *Router) addRoute(method, path string, h Handler) {
	if path == "" || path[0] != '/' {
		panic("seeplusplus: route path must begin with '/'")
	}

	root, ok := r.routes[method]
	if !ok {
		root = &routeNode{segment: "/", children: make(map[string]*routeNode)}
		r.routes[method] = root
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		root.handler = h
		return
	}

	current := root
	for _, segment := range strings.Split(trimmed, "/") {
		isParam := strings.HasPrefix(segment, ":")
		isWild := strings.HasPrefix(segment, "*")

		key := segment
		if isParam || isWild {
			key = segment[:1]
		}

		child, ok := current.children[key]
		if !ok {
			child = &routeNode{segment: segment, children: make(map[string]*routeNode), isParam: isParam, isWild: isWild}
			if isParam || isWild {
				child.paramName = segment[1:]
			}
			current.children[key] = child
		}
		current = child
	}
	current.handler = h
}

// Route looks up a handler for (req.Method, req.Path), runs it (wrapped in
// any registered middleware) against resp, and reports whether a route
// matched. A matched route whose Serve returns an error still reports
// matched == true; the caller inspects err to turn it into a 500 response.
func (r *Router) Route(req *Request, resp *Response) (matched bool, err error) {
	root, ok := r.routes[req.Method]
	if !ok {
		return false, nil
	}

	path := req.Path
	if q := strings.IndexByte(path, '?'); q >= 0 {
		path = path[:q]
	}

	handler, params := findRoute(root, path)
	if handler == nil {
		return false, nil
	}
	req.Params = params

	if len(r.middlewares) > 0 {
		handler = Chain(r.middlewares...)(handler)
	}
	return true, handler.Serve(req, resp)
}

func findRoute(root *routeNode, path string) (Handler, map[string]string) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return root.handler, nil
	}

	var params map[string]string
	current := root
	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		if child, ok := current.children[segment]; ok {
			current = child
			continue
		}
		if child, ok := current.children[":"]; ok {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[child.paramName] = segment
			current = child
			continue
		}
		if child, ok := current.children["*"]; ok {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[child.paramName] = strings.Join(segments[i:], "/")
			current = child
			return current.handler, params
		}
		return nil, nil
	}
	return current.handler, params
}

// Param retrieves a URL parameter by name from a matched Request.
func Param(req *Request, name string) string {
	return req.Param(name)
}

// MustParam retrieves a URL parameter or panics if absent.
func MustParam(req *Request, name string) string {
	v := req.Param(name)
	if v == "" {
		panic(fmt.Sprintf("seeplusplus: parameter %q not found", name))
	}
	return v
}
