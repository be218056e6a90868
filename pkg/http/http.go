// Package http builds the literal GET requests the stack sends and splits
// the raw responses it gets back. There is no connection handling here; the
// transport is the TCP/TLS machinery in pkg/netstack/stack.
package http

import "bytes"

// UserAgent identifies the stack in outgoing requests.
const UserAgent = "pondos/1.0"

// headerTerminator separates the response headers from the body.
var headerTerminator = []byte("\r\n\r\n")

// BuildRequest returns a GET request for path on host, asking the server to
// close the connection after the response so end-of-body is end-of-stream.
func BuildRequest(host, path string) []byte {
	if path == "" {
		path = "/"
	}

	var b bytes.Buffer
	b.WriteString("GET ")
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\nHost: ")
	b.WriteString(host)
	b.WriteString("\r\nConnection: close\r\nUser-Agent: ")
	b.WriteString(UserAgent)
	b.WriteString("\r\n\r\n")
	return b.Bytes()
}

// Body returns the response body: everything after the first blank line.
// A response with no header terminator is returned whole, headers and all;
// callers get raw bytes rather than nothing.
func Body(response []byte) []byte {
	if i := bytes.Index(response, headerTerminator); i >= 0 {
		return response[i+len(headerTerminator):]
	}
	return response
}

// HeaderEnd returns the offset just past the header terminator, or -1 if the
// headers are not complete yet. The TLS client uses this to find the body
// boundary across record fragments.
func HeaderEnd(response []byte) int {
	if i := bytes.Index(response, headerTerminator); i >= 0 {
		return i + len(headerTerminator)
	}
	return -1
}
