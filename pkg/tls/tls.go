// Package tls implements a TLS 1.2 client over the stack's single TCP
// connection: RSA key exchange with AES-128-CBC records and SHA-1 or
// SHA-256 HMAC, driven by the from-scratch crypto in pkg/crypto.
//
// The client performs NO certificate chain, signature, or hostname
// validation: it encrypts to whatever public key the peer presents. This is
// a deliberate, documented limitation of the system - HTTPS traffic is
// protected against passive observation but not against an active
// man-in-the-middle. Do not silently "fix" this; callers and tests rely on
// the behavior.
package tls

import (
	"errors"

	"pondos/pkg/crypto/aes"
	"pondos/pkg/crypto/prng"
	"pondos/pkg/log"
)

// TLS record content types.
const (
	recordChangeCipherSpec byte = 20
	recordAlert            byte = 21
	recordHandshake        byte = 22
	recordApplicationData  byte = 23
)

// Protocol versions on the wire. The very first ClientHello record is
// tagged TLS 1.0 for compatibility; everything after runs TLS 1.2.
const (
	VersionTLS10 uint16 = 0x0301
	VersionTLS12 uint16 = 0x0303
)

// Cipher suites the client offers, in preference order.
const (
	SuiteAES128CBCSHA256 uint16 = 0x003C
	SuiteAES128CBCSHA    uint16 = 0x002F
)

// Handshake message types.
const (
	msgClientHello       byte = 1
	msgServerHello       byte = 2
	msgNewSessionTicket  byte = 4
	msgCertificate       byte = 11
	msgServerHelloDone   byte = 14
	msgClientKeyExchange byte = 16
	msgFinished          byte = 20
)

// recordHeaderLen is the TLS record header size.
const recordHeaderLen = 5

// maxRecordLen bounds an incoming record body; anything larger is treated
// as a protocol error rather than buffered.
const maxRecordLen = 18 * 1024

// handshakeRecordTimeoutMS bounds each record read during the handshake.
const handshakeRecordTimeoutMS = 5000

// Sentinel errors surfaced by the session.
var (
	ErrTransport          = errors.New("tls: transport read or write failed")
	ErrRecordTooLarge     = errors.New("tls: incoming record exceeds maximum size")
	ErrAlertReceived      = errors.New("tls: alert received")
	ErrMissingServerHello = errors.New("tls: handshake ended without ServerHello")
	ErrMissingCertificate = errors.New("tls: handshake ended without Certificate")
	ErrBadRecordMAC       = errors.New("tls: record has invalid MAC")
	ErrBadPadding         = errors.New("tls: record has invalid padding")
	ErrVerifyMismatch     = errors.New("tls: Finished verify data mismatch")
	ErrUnexpectedMessage  = errors.New("tls: unexpected message")
	ErrNotEstablished     = errors.New("tls: session not established")
	ErrClosed             = errors.New("tls: connection closed by peer")
)

// Transport is what the session needs from the TCP layer: whole-buffer
// sends and receives that poll until the buffer is full, the peer closes,
// or the timeout elapses.
type Transport interface {
	Send(data []byte) error
	Receive(buf []byte, timeoutMS uint32) (int, error)
}

// Config carries the session's environment.
type Config struct {
	// Host is the server name sent in the SNI extension.
	Host string
	// Now is the millisecond tick counter; it stamps the ClientHello random.
	Now func() uint64
	// Rand supplies nonces, IVs and RSA padding. Not cryptographically
	// secure; see the package comment.
	Rand *prng.PRNG
	// Log receives handshake diagnostics. Defaults to the quiet logger.
	Log log.Logger
}

// Session is a TLS 1.2 client connection. A session is single-use: one
// handshake, then application data until either side closes.
type Session struct {
	conn Transport
	cfg  Config
	log  log.Logger

	clientRandom [32]byte
	serverRandom [32]byte
	masterSecret [48]byte
	suite        uint16
	macLen       int

	clientMACKey []byte
	serverMACKey []byte
	clientCipher *aes.Cipher
	serverCipher *aes.Cipher

	sendSeq uint64
	recvSeq uint64

	// transcript accumulates every handshake message verbatim (headers
	// included) until the handshake completes; the Finished verify data is
	// a PRF over its hash. Append-only, never read afterwards.
	transcript []byte

	established bool
}

// NewSession wraps an established TCP connection in a TLS client session.
func NewSession(conn Transport, cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}
	return &Session{
		conn: conn,
		cfg:  cfg,
		log:  cfg.Log.WithField("host", cfg.Host),
	}
}

// Established reports whether the handshake has completed.
func (s *Session) Established() bool {
	return s.established
}

// Suite returns the negotiated cipher suite, valid once established.
func (s *Session) Suite() uint16 {
	return s.suite
}
