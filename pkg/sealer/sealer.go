package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sealer issues opaque booking tickets binding a registration number to the date it was booked under.
type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer from a 32 byte key. An empty key generates a random one,
// which invalidates tickets across restarts.
func New(key []byte) (*Sealer, error) {
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, err
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aesgcm}, nil
}

func (s *Sealer) Seal(date string, number int) (string, error) {
	plaintext := []byte(date + ":" + strconv.Itoa(number))

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) Open(token string) (string, int, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", 0, err
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", 0, fmt.Errorf("invalid token length")
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", 0, err
	}

	parts := strings.SplitN(string(pt), ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid token format")
	}

	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid token number: %w", err)
	}

	return parts[0], number, nil
}
