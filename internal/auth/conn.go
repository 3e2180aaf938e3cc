package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// MaxPacketSize bounds one sealed packet. Protocol lines and frames are far
// smaller.
const MaxPacketSize = 64 * 1024

// ErrPacketTooLarge is returned for a packet header above MaxPacketSize.
var ErrPacketTooLarge = errors.New("sealed packet too large")

// Direction tags keep the two sides of a session from ever sharing a nonce.
const (
	tagClient byte = 'c'
	tagServer byte = 's'
)

// Conn seals everything written to it with ChaCha20-Poly1305. Each packet is
// a big-endian uint32 length followed by the ciphertext. Nonces are implicit
// per-direction counters, so a dropped, replayed or reordered packet fails to
// open.
type Conn struct {
	net.Conn
	r    io.Reader
	aead cipher.AEAD

	wmu     sync.Mutex
	sendTag byte
	sendCtr uint64

	rmu     sync.Mutex
	recvTag byte
	recvCtr uint64
	pending bytes.Buffer
}

// WrapConn seals conn with sessionKey. r is where ciphertext is read from; it
// is conn itself unless handshake bytes were read through a buffer.
func WrapConn(conn net.Conn, r io.Reader, sessionKey []byte, client bool) (*Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = conn
	}
	c := &Conn{Conn: conn, r: r, aead: aead, sendTag: tagServer, recvTag: tagClient}
	if client {
		c.sendTag, c.recvTag = tagClient, tagServer
	}
	return c, nil
}

func nonce(tag byte, ctr uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	n[0] = tag
	binary.BigEndian.PutUint64(n[4:], ctr)
	return n
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if len(p)+c.aead.Overhead() > MaxPacketSize {
		return 0, ErrPacketTooLarge
	}
	pkt := make([]byte, 4, 4+len(p)+c.aead.Overhead())
	pkt = c.aead.Seal(pkt, nonce(c.sendTag, c.sendCtr), p, nil)
	binary.BigEndian.PutUint32(pkt, uint32(len(pkt)-4))
	c.sendCtr++
	if _, err := c.Conn.Write(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	for c.pending.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n > MaxPacketSize {
			return 0, ErrPacketTooLarge
		}
		ct := make([]byte, n)
		if _, err := io.ReadFull(c.r, ct); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		pt, err := c.aead.Open(ct[:0], nonce(c.recvTag, c.recvCtr), ct, nil)
		if err != nil {
			return 0, err
		}
		c.recvCtr++
		c.pending.Write(pt)
	}
	return c.pending.Read(p)
}
