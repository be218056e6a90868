package tls

import (
	"encoding/binary"
	"fmt"

	"pondos/pkg/crypto/aes"
	"pondos/pkg/crypto/hash"
	"pondos/pkg/crypto/rsa"
)

// Handshake runs the full TLS 1.2 client handshake:
// ClientHello -> ServerHello/Certificate/ServerHelloDone ->
// ClientKeyExchange/ChangeCipherSpec/Finished -> server
// ChangeCipherSpec/Finished. Each step is a hard precondition for the next;
// the first failure aborts the session.
func (s *Session) Handshake() error {
	if s.established {
		return nil
	}

	if err := s.sendClientHello(); err != nil {
		return err
	}

	cert, err := s.receiveServerHandshake()
	if err != nil {
		return err
	}

	encryptedPreMaster, err := s.deriveKeys(cert)
	if err != nil {
		return err
	}

	if err := s.sendClientKeyExchange(encryptedPreMaster); err != nil {
		return err
	}
	if err := s.writeRecord(recordChangeCipherSpec, VersionTLS12, []byte{1}); err != nil {
		return err
	}
	if err := s.sendFinished(); err != nil {
		return err
	}

	if err := s.receiveServerFinished(); err != nil {
		return err
	}

	s.established = true
	s.log.Debugf("handshake complete, suite %#04x", s.suite)
	return nil
}

func (s *Session) sendClientHello() error {
	binary.BigEndian.PutUint32(s.clientRandom[:4], uint32(s.cfg.Now()/1000))
	s.cfg.Rand.Fill(s.clientRandom[4:])

	body := make([]byte, 0, 128+len(s.cfg.Host))
	body = append(body, byte(VersionTLS12>>8), byte(VersionTLS12&0xff))
	body = append(body, s.clientRandom[:]...)
	body = append(body, 0) // empty session id

	body = append(body, 0, 4,
		byte(SuiteAES128CBCSHA256>>8), byte(SuiteAES128CBCSHA256),
		byte(SuiteAES128CBCSHA>>8), byte(SuiteAES128CBCSHA))
	body = append(body, 1, 0) // null compression only

	ext := s.buildExtensions()
	body = append(body, byte(len(ext)>>8), byte(len(ext)))
	body = append(body, ext...)

	msg := handshakeMessage(msgClientHello, body)
	s.transcript = append(s.transcript, msg...)

	// The first record is tagged TLS 1.0 so ancient middleboxes pass it.
	return s.writeRecord(recordHandshake, VersionTLS10, msg)
}

func (s *Session) buildExtensions() []byte {
	host := []byte(s.cfg.Host)
	var ext []byte

	// server_name: one host_name entry.
	sni := make([]byte, 0, len(host)+5)
	sni = append(sni, byte((len(host)+3)>>8), byte(len(host)+3)) // list length
	sni = append(sni, 0)                                         // name type host_name
	sni = append(sni, byte(len(host)>>8), byte(len(host)))
	sni = append(sni, host...)
	ext = appendExtension(ext, 0x0000, sni)

	// signature_algorithms: rsa with sha256, sha384, sha1.
	ext = appendExtension(ext, 0x000d, []byte{0, 6, 0x04, 0x01, 0x05, 0x01, 0x02, 0x01})

	// ec_point_formats: uncompressed.
	ext = appendExtension(ext, 0x000b, []byte{1, 0})

	// renegotiation_info: empty.
	ext = appendExtension(ext, 0xff01, []byte{0})

	return ext
}

func appendExtension(ext []byte, typ uint16, data []byte) []byte {
	ext = append(ext, byte(typ>>8), byte(typ))
	ext = append(ext, byte(len(data)>>8), byte(len(data)))
	return append(ext, data...)
}

// handshakeMessage prepends the 4-byte handshake header: type plus 24-bit
// body length.
func handshakeMessage(typ byte, body []byte) []byte {
	msg := make([]byte, 4+len(body))
	msg[0] = typ
	msg[1] = byte(len(body) >> 16)
	msg[2] = byte(len(body) >> 8)
	msg[3] = byte(len(body))
	copy(msg[4:], body)
	return msg
}

// receiveServerHandshake reads handshake records until ServerHelloDone,
// capturing the server random, the negotiated suite, and the first
// certificate. Every record's handshake bytes land in the transcript
// verbatim.
func (s *Session) receiveServerHandshake() ([]byte, error) {
	var cert []byte
	seenHello := false
	done := false

	for !done {
		typ, _, body, err := s.readRecord(handshakeRecordTimeoutMS)
		if err != nil {
			return nil, err
		}
		switch typ {
		case recordAlert:
			return nil, s.alertError(body)
		case recordHandshake:
		default:
			return nil, ErrUnexpectedMessage
		}

		s.transcript = append(s.transcript, body...)

		pos := 0
		for pos+4 <= len(body) {
			mt := body[pos]
			mlen := int(body[pos+1])<<16 | int(body[pos+2])<<8 | int(body[pos+3])
			if pos+4+mlen > len(body) {
				return nil, fmt.Errorf("%w: truncated handshake message", ErrUnexpectedMessage)
			}
			payload := body[pos+4 : pos+4+mlen]
			pos += 4 + mlen

			switch mt {
			case msgServerHello:
				if err := s.parseServerHello(payload); err != nil {
					return nil, err
				}
				seenHello = true
			case msgCertificate:
				cert, err = parseCertificateMessage(payload)
				if err != nil {
					return nil, err
				}
			case msgServerHelloDone:
				done = true
			default:
				// ServerKeyExchange and friends never appear for an RSA
				// key exchange; anything else is ignored here.
				s.log.Debugf("ignoring handshake message type %d", mt)
			}
		}
	}

	if !seenHello {
		return nil, ErrMissingServerHello
	}
	if cert == nil {
		return nil, ErrMissingCertificate
	}
	return cert, nil
}

func (s *Session) parseServerHello(payload []byte) error {
	// version(2) random(32) session_id(1+n) suite(2) compression(1)
	if len(payload) < 35 {
		return fmt.Errorf("%w: short ServerHello", ErrUnexpectedMessage)
	}
	copy(s.serverRandom[:], payload[2:34])

	sidLen := int(payload[34])
	if len(payload) < 35+sidLen+3 {
		return fmt.Errorf("%w: short ServerHello", ErrUnexpectedMessage)
	}
	s.suite = binary.BigEndian.Uint16(payload[35+sidLen:])

	if s.suite != SuiteAES128CBCSHA256 && s.suite != SuiteAES128CBCSHA {
		return fmt.Errorf("%w: server chose unsupported suite %#04x", ErrUnexpectedMessage, s.suite)
	}
	return nil
}

// parseCertificateMessage returns the first certificate of the chain.
func parseCertificateMessage(payload []byte) ([]byte, error) {
	if len(payload) < 6 {
		return nil, ErrMissingCertificate
	}
	certLen := int(payload[3])<<16 | int(payload[4])<<8 | int(payload[5])
	if certLen == 0 || 6+certLen > len(payload) {
		return nil, ErrMissingCertificate
	}
	return payload[6 : 6+certLen], nil
}

// deriveKeys extracts the server's RSA key, encrypts a fresh pre-master
// secret to it, and expands master secret plus key block. Returns the
// encrypted pre-master secret for the ClientKeyExchange message.
func (s *Session) deriveKeys(cert []byte) ([]byte, error) {
	pub, err := rsa.ExtractPublicKey(cert)
	if err != nil {
		return nil, err
	}

	if s.suite == SuiteAES128CBCSHA256 {
		s.macLen = hash.SHA256Size
	} else {
		s.macLen = hash.SHA1Size
	}

	var preMaster [48]byte
	preMaster[0] = byte(VersionTLS12 >> 8)
	preMaster[1] = byte(VersionTLS12 & 0xff)
	s.cfg.Rand.Fill(preMaster[2:])

	encrypted, err := rsa.EncryptPKCS1v15(s.cfg.Rand, pub, preMaster[:])
	if err != nil {
		return nil, err
	}

	seed := make([]byte, 0, 64)
	seed = append(seed, s.clientRandom[:]...)
	seed = append(seed, s.serverRandom[:]...)
	copy(s.masterSecret[:], PRF(preMaster[:], "master secret", seed, 48))

	// Key block seed swaps the randoms.
	seed = seed[:0]
	seed = append(seed, s.serverRandom[:]...)
	seed = append(seed, s.clientRandom[:]...)
	block := PRF(s.masterSecret[:], "key expansion", seed, 2*s.macLen+64)

	s.clientMACKey = block[:s.macLen]
	s.serverMACKey = block[s.macLen : 2*s.macLen]

	var clientKey, serverKey [16]byte
	copy(clientKey[:], block[2*s.macLen:])
	copy(serverKey[:], block[2*s.macLen+16:])
	s.clientCipher = aes.NewCipher(clientKey)
	s.serverCipher = aes.NewCipher(serverKey)
	// The key block also yields two write IVs, but TLS 1.2 block ciphers
	// carry an explicit random IV per record, so they are never consulted.

	return encrypted, nil
}

func (s *Session) sendClientKeyExchange(encryptedPreMaster []byte) error {
	body := make([]byte, 2+len(encryptedPreMaster))
	binary.BigEndian.PutUint16(body[:2], uint16(len(encryptedPreMaster)))
	copy(body[2:], encryptedPreMaster)

	msg := handshakeMessage(msgClientKeyExchange, body)
	s.transcript = append(s.transcript, msg...)
	return s.writeRecord(recordHandshake, VersionTLS12, msg)
}

func (s *Session) sendFinished() error {
	th := hash.SumSHA256(s.transcript)
	verify := PRF(s.masterSecret[:], "client finished", th[:], 12)

	msg := handshakeMessage(msgFinished, verify)
	// The client Finished joins the transcript before encryption so the
	// server's Finished covers it.
	s.transcript = append(s.transcript, msg...)
	return s.writeEncryptedRecord(recordHandshake, msg)
}

// receiveServerFinished waits for the peer's ChangeCipherSpec and encrypted
// Finished, skipping a NewSessionTicket if the server sends one, and
// requires the verify data to match our own transcript byte for byte.
func (s *Session) receiveServerFinished() error {
	seenCCS := false

	for attempts := 0; attempts < 8; attempts++ {
		typ, version, body, err := s.readRecord(handshakeRecordTimeoutMS)
		if err != nil {
			return err
		}

		switch typ {
		case recordChangeCipherSpec:
			seenCCS = true

		case recordAlert:
			if seenCCS {
				if pt, derr := s.decryptRecord(typ, version, body); derr == nil {
					return s.alertError(pt)
				}
			}
			return s.alertError(body)

		case recordHandshake:
			if !seenCCS {
				// Plaintext handshake before the cipher change: a session
				// ticket. It still counts toward the transcript.
				if len(body) >= 4 && body[0] == msgNewSessionTicket {
					s.transcript = append(s.transcript, body...)
					continue
				}
				return ErrUnexpectedMessage
			}

			pt, err := s.decryptRecord(typ, version, body)
			if err != nil {
				return err
			}
			if len(pt) < 4 {
				return ErrUnexpectedMessage
			}
			if pt[0] == msgNewSessionTicket {
				s.transcript = append(s.transcript, pt...)
				continue
			}
			if pt[0] != msgFinished || len(pt) < 16 {
				return ErrUnexpectedMessage
			}

			th := hash.SumSHA256(s.transcript)
			want := PRF(s.masterSecret[:], "server finished", th[:], 12)
			if !macEqual(pt[4:16], want) {
				return ErrVerifyMismatch
			}

			// Final transcript write; nothing reads it after this point.
			s.transcript = append(s.transcript, pt[:16]...)
			return nil

		default:
			return ErrUnexpectedMessage
		}
	}
	return ErrUnexpectedMessage
}
