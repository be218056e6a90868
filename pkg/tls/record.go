package tls

import (
	"encoding/binary"
	"fmt"

	"pondos/pkg/crypto/aes"
	"pondos/pkg/crypto/hash"
)

// writeRecord sends one plaintext record.
func (s *Session) writeRecord(typ byte, version uint16, payload []byte) error {
	rec := make([]byte, recordHeaderLen+len(payload))
	rec[0] = typ
	binary.BigEndian.PutUint16(rec[1:3], version)
	binary.BigEndian.PutUint16(rec[3:5], uint16(len(payload)))
	copy(rec[recordHeaderLen:], payload)

	if err := s.conn.Send(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// readRecord reads one record, returning its type, wire version, and body.
func (s *Session) readRecord(timeoutMS uint32) (typ byte, version uint16, body []byte, err error) {
	var hdr [recordHeaderLen]byte
	if err := s.readFull(hdr[:], timeoutMS); err != nil {
		return 0, 0, nil, err
	}

	typ = hdr[0]
	version = binary.BigEndian.Uint16(hdr[1:3])
	length := int(binary.BigEndian.Uint16(hdr[3:5]))
	if length > maxRecordLen {
		return 0, 0, nil, ErrRecordTooLarge
	}

	body = make([]byte, length)
	if err := s.readFull(body, timeoutMS); err != nil {
		return 0, 0, nil, err
	}
	return typ, version, body, nil
}

func (s *Session) readFull(buf []byte, timeoutMS uint32) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := s.conn.Receive(buf, timeoutMS)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if n < len(buf) {
		return fmt.Errorf("%w: short read %d of %d", ErrTransport, n, len(buf))
	}
	return nil
}

// recordMAC computes HMAC(key, seq || type || version || length || data)
// with the hash the negotiated suite prescribes.
func (s *Session) recordMAC(key []byte, seq uint64, typ byte, version uint16, data []byte) []byte {
	msg := make([]byte, 13+len(data))
	binary.BigEndian.PutUint64(msg[0:8], seq)
	msg[8] = typ
	binary.BigEndian.PutUint16(msg[9:11], version)
	binary.BigEndian.PutUint16(msg[11:13], uint16(len(data)))
	copy(msg[13:], data)

	if s.macLen == hash.SHA256Size {
		mac := hash.HMACSHA256(key, msg)
		return mac[:]
	}
	mac := hash.HMACSHA1(key, msg)
	return mac[:]
}

// writeEncryptedRecord protects payload as data || MAC || padding under the
// client write keys, with a fresh random IV prepended in the clear.
func (s *Session) writeEncryptedRecord(typ byte, payload []byte) error {
	mac := s.recordMAC(s.clientMACKey, s.sendSeq, typ, VersionTLS12, payload)

	// TLS block padding: padLen+1 bytes, every byte equal to padLen.
	total := len(payload) + len(mac)
	padLen := byte(aes.BlockSize - 1 - total%aes.BlockSize)

	pt := make([]byte, 0, total+int(padLen)+1)
	pt = append(pt, payload...)
	pt = append(pt, mac...)
	for i := 0; i <= int(padLen); i++ {
		pt = append(pt, padLen)
	}

	var iv [aes.BlockSize]byte
	s.cfg.Rand.Fill(iv[:])

	ct, err := aes.EncryptCBC(s.clientCipher, iv, pt)
	if err != nil {
		return err
	}

	body := make([]byte, 0, aes.BlockSize+len(ct))
	body = append(body, iv[:]...)
	body = append(body, ct...)

	s.sendSeq++
	return s.writeRecord(typ, VersionTLS12, body)
}

// decryptRecord reverses writeEncryptedRecord for an inbound record body:
// strip the explicit IV, decrypt, validate padding, verify the MAC.
func (s *Session) decryptRecord(typ byte, version uint16, body []byte) ([]byte, error) {
	if len(body) < 2*aes.BlockSize || (len(body)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, ErrBadPadding
	}

	var iv [aes.BlockSize]byte
	copy(iv[:], body[:aes.BlockSize])

	pt, err := aes.DecryptCBC(s.serverCipher, iv, body[aes.BlockSize:])
	if err != nil {
		return nil, ErrBadPadding
	}

	padVal := pt[len(pt)-1]
	padLen := int(padVal) + 1
	if padLen+s.macLen > len(pt) {
		return nil, ErrBadPadding
	}
	for _, b := range pt[len(pt)-padLen:] {
		if b != padVal {
			return nil, ErrBadPadding
		}
	}

	data := pt[:len(pt)-padLen-s.macLen]
	gotMAC := pt[len(data) : len(data)+s.macLen]

	wantMAC := s.recordMAC(s.serverMACKey, s.recvSeq, typ, version, data)
	if !macEqual(gotMAC, wantMAC) {
		return nil, ErrBadRecordMAC
	}

	s.recvSeq++
	return data, nil
}

func macEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// Send encrypts data as a single application-data record.
func (s *Session) Send(data []byte) error {
	if !s.established {
		return ErrNotEstablished
	}
	return s.writeEncryptedRecord(recordApplicationData, data)
}

// Receive reads and decrypts one application-data record. A close_notify or
// any other alert surfaces as ErrClosed / ErrAlertReceived.
func (s *Session) Receive(timeoutMS uint32) ([]byte, error) {
	if !s.established {
		return nil, ErrNotEstablished
	}

	typ, version, body, err := s.readRecord(timeoutMS)
	if err != nil {
		return nil, err
	}

	switch typ {
	case recordApplicationData:
		return s.decryptRecord(typ, version, body)
	case recordAlert:
		pt, err := s.decryptRecord(typ, version, body)
		if err == nil && len(pt) >= 2 && pt[1] == alertCloseNotify {
			return nil, ErrClosed
		}
		return nil, s.alertError(pt)
	default:
		return nil, ErrUnexpectedMessage
	}
}

// Alert descriptions worth naming in logs.
const (
	alertCloseNotify     = 0
	alertLevelFatal      = 2
	alertHandshakeFailed = 40
	alertBadRecordMAC    = 20
)

func (s *Session) alertError(alert []byte) error {
	if len(alert) >= 2 {
		s.log.Warnf("tls alert: level=%d description=%d", alert[0], alert[1])
		return fmt.Errorf("%w: level %d description %d", ErrAlertReceived, alert[0], alert[1])
	}
	return ErrAlertReceived
}
