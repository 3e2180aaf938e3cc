package auth

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// Magic opens a client handshake. It can start neither a protocol line nor a
// valid raw input frame, whose sixth byte is the high byte of a sample below
// 1024.
const Magic = "\x00JAMMAIO"

const (
	NonceSize   = 32
	authContext = "jammaio-auth-v1"
)

var (
	replyOK     = []byte("OK\x00")
	replyDenied = []byte("NO\x00")
)

// ErrUnauthorized is returned when the peer did not prove it knows the key.
var ErrUnauthorized = errors.New("unauthorized")

func clientProof(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(authContext))
	mac.Write(clientNonce)
	return mac.Sum(nil)
}

// IsHandshake reports whether the next bytes of r are the handshake magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(Magic))
	if err != nil {
		return false, err
	}
	return string(b) == Magic, nil
}

// ClientHandshake proves knowledge of key to the server and returns the
// session key.
func ClientHandshake(rw io.ReadWriter, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("handshake: %w", ErrEmptyKey)
	}
	clientNonce := make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, fmt.Errorf("generate client nonce: %w", err)
	}
	msg := make([]byte, 0, len(Magic)+NonceSize+sha256.Size)
	msg = append(msg, Magic...)
	msg = append(msg, clientNonce...)
	msg = append(msg, clientProof(key, clientNonce)...)
	if _, err := rw.Write(msg); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	reply := make([]byte, len(replyOK))
	if _, err := io.ReadFull(rw, reply); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("read handshake reply: %w", err)
	}
	switch {
	case bytes.Equal(reply, replyDenied):
		return nil, ErrUnauthorized
	case !bytes.Equal(reply, replyOK):
		return nil, fmt.Errorf("invalid handshake reply %q", reply)
	}
	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rw, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	return DeriveSessionKey(key, serverNonce, clientNonce), nil
}

// ServerHandshake checks the client's proof and returns the session key. A
// client with the wrong key is told so before ErrUnauthorized is returned.
func ServerHandshake(r *bufio.Reader, w io.Writer, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("handshake: %w", ErrEmptyKey)
	}
	msg := make([]byte, len(Magic)+NonceSize+sha256.Size)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	if string(msg[:len(Magic)]) != Magic {
		_, _ = w.Write(replyDenied)
		return nil, fmt.Errorf("%w: no handshake", ErrUnauthorized)
	}
	clientNonce := msg[len(Magic) : len(Magic)+NonceSize]
	if !hmac.Equal(msg[len(Magic)+NonceSize:], clientProof(key, clientNonce)) {
		_, _ = w.Write(replyDenied)
		return nil, fmt.Errorf("%w: wrong key", ErrUnauthorized)
	}

	serverNonce := make([]byte, NonceSize)
	if _, err := rand.Read(serverNonce); err != nil {
		return nil, fmt.Errorf("generate server nonce: %w", err)
	}
	if _, err := w.Write(append(append([]byte(nil), replyOK...), serverNonce...)); err != nil {
		return nil, fmt.Errorf("write handshake reply: %w", err)
	}
	return DeriveSessionKey(key, serverNonce, clientNonce), nil
}
