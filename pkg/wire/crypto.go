// Package wire implements the on-wire framing: a one-byte header
// length, a protobuf RqHeader/RsHeader, a protobuf CryptoInfo, and an
// AES-128-CBC-encrypted protobuf body (Rq or Rs). Message fields are
// encoded with google.golang.org/protobuf's low-level
// encoding/protowire primitives rather than a generated descriptor, in
// the nanopb style of hand-rolling a "no dynamic allocation, no
// descriptor reflection" codec field-by-field.
package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// IVSize is the AES block size and the CryptoInfo IV length.
const IVSize = 16

// RandFunc mirrors session.RandFunc so this package doesn't import
// pkg/session (which would create a cycle through pkg/request).
type RandFunc func(buf []byte) error

// pad returns the PKCS-like trailing pad length: (16 - size%16) % 16.
func pad(size int) int {
	return (IVSize - size%IVSize) % IVSize
}

// Encrypt AES-128-CBC encrypts plaintext (already zero-padded to a
// 16-byte boundary by the caller) into a newly allocated ciphertext,
// generating a fresh random IV via randf.
func Encrypt(key []byte, plaintext []byte, randf RandFunc) (iv []byte, ciphertext []byte, err error) {
	if len(plaintext)%IVSize != 0 {
		return nil, nil, fmt.Errorf("wire: plaintext not block-aligned")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: aes key: %w", err)
	}
	iv = make([]byte, IVSize)
	if err := randf(iv); err != nil {
		return nil, nil, fmt.Errorf("wire: iv: %w", err)
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return iv, out, nil
}

// Decrypt AES-128-CBC decrypts ciphertext using iv, returning the
// plaintext including its trailing pad bytes (the caller trims
// padLen).
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%IVSize != 0 {
		return nil, fmt.Errorf("wire: ciphertext not block-aligned")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wire: aes key: %w", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}
