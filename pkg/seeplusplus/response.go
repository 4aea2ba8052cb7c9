package seeplusplus

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mush1e/see-plus-plus/internal/httpdate"
)

// Response is what a Handler populates. The wire form, produced by Bytes,
// is always "HTTP/1.1 <code> <text>\r\n" then each header as
// "name: value\r\n", then "\r\n", then the body.
type Response struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       []byte
}

// newResponse returns a Response pre-seeded with the 500 default a task
// falls back to before the router has had a chance to run.
func newResponse(serverName string) *Response {
	return &Response{
		Status:     500,
		StatusText: "Internal Server Error",
		Headers: map[string]string{
			"Content-Type": "text/plain",
			"Server":       serverName,
		},
		Body: nil,
	}
}

// SetHeader sets a response header, overwriting any existing value.
func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
}

// String sets the given status and a text/plain response body.
func (r *Response) String(status int, body string) {
	r.Status = status
	r.StatusText = statusText(status)
	r.SetHeader("Content-Type", "text/plain")
	r.Body = []byte(body)
}

// JSON marshals v and sets an application/json response body.
func (r *Response) JSON(status int, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Status = status
	r.StatusText = statusText(status)
	r.SetHeader("Content-Type", "application/json")
	r.Body = b
	return nil
}

// Bytes serializes the response to its wire form. Content-Length is derived
// from Body and always written last among the caller-visible headers, after
// whatever the handler or task set directly.
func (r *Response) Bytes() []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(r.StatusText)
	b.WriteString("\r\n")

	for name, value := range r.Headers {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	if _, ok := r.Headers["Date"]; !ok {
		b.WriteString("Date: ")
		b.Write(httpdate.Current())
		b.WriteString("\r\n")
	}
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString("\r\n\r\n")

	out := make([]byte, 0, b.Len()+len(r.Body))
	out = append(out, b.String()...)
	out = append(out, r.Body...)
	return out
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Request Entity Too Large"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}
