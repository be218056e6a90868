package stack

import (
	"fmt"

	"pondos/pkg/http"
	"pondos/pkg/tls"
)

// httpsMaxRecordReads bounds how many TLS records a response may span.
const httpsMaxRecordReads = 20

// encryptionFailedPage is shown in place of the response when the TLS
// handshake fails. Handshake failure is a page-worthy outcome rather than
// an error: the network did its job, the peer just could not be secured.
const encryptionFailedPage = `<!DOCTYPE html>
<html>
<head><title>HTTPS Encryption Failed</title></head>
<body>
<h1>HTTPS Encryption Failed</h1>
<p>A secure session with %s could not be established.</p>
</body>
</html>
`

// HTTPSGet fetches https://host/path and returns the response body. A
// failure before the TLS layer (resolution, connect) is an error; a failed
// handshake returns the encryption-failed page with a nil error.
func (s *Stack) HTTPSGet(host, path string, timeoutMS uint32) ([]byte, error) {
	addr, err := s.Resolve(host)
	if err != nil {
		return nil, err
	}

	conn, err := s.Connect(addr, 443)
	if err != nil {
		return nil, err
	}

	sess := tls.NewSession(conn, tls.Config{
		Host: host,
		Now:  s.clock.Now,
		Rand: s.rng,
		Log:  s.log,
	})
	if err := sess.Handshake(); err != nil {
		s.log.Warnf("tls handshake with %s failed: %v", host, err)
		conn.Close()
		return []byte(fmt.Sprintf(encryptionFailedPage, host)), nil
	}

	if err := sess.Send(http.BuildRequest(host, path)); err != nil {
		conn.Close()
		return nil, err
	}

	var response []byte
	bodyStart := -1
	for i := 0; i < httpsMaxRecordReads; i++ {
		data, err := sess.Receive(timeoutMS)
		if err != nil {
			// Includes the peer's close_notify; the response ends here.
			break
		}
		response = append(response, data...)
		if bodyStart < 0 {
			// The header/body boundary can straddle record fragments.
			bodyStart = http.HeaderEnd(response)
		}
	}
	conn.Close()

	if len(response) == 0 {
		return nil, ErrEmptyResponse
	}
	if bodyStart >= 0 {
		return response[bodyStart:], nil
	}
	return response, nil
}
