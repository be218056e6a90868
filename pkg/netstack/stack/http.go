package stack

import (
	"pondos/pkg/http"
)

// maxHTTPResponse bounds a plain-HTTP response body.
const maxHTTPResponse = 64 * 1024

// HTTPGet fetches http://host/path and returns the response body. The
// server is expected to honor Connection: close, which is what ends the
// read.
func (s *Stack) HTTPGet(host, path string, timeoutMS uint32) ([]byte, error) {
	addr, err := s.Resolve(host)
	if err != nil {
		return nil, err
	}

	conn, err := s.Connect(addr, 80)
	if err != nil {
		return nil, err
	}

	if err := conn.Send(http.BuildRequest(host, path)); err != nil {
		conn.Close()
		return nil, err
	}

	buf := make([]byte, maxHTTPResponse)
	n, err := conn.Receive(buf, timeoutMS)
	conn.Close()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyResponse
	}

	return http.Body(buf[:n]), nil
}
