package decrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
)

// KeySize is the size of the pre-shared AES-128 key.
const KeySize = 16

var (
	// ErrKeySize indicates the key is not an AES-128 key.
	ErrKeySize = errors.New("key must be 16 bytes")
	// ErrBlockTooLong indicates a plaintext longer than one block.
	ErrBlockTooLong = errors.New("plaintext longer than one block")
)

// NewAESCipher creates the block cipher for the pre-shared key.
func NewAESCipher(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return aes.NewCipher(key)
}

// ParseKey accepts a key as 16 raw bytes or 32 hex digits. A raw key
// is used untouched, except a single trailing line ending. Whitespace
// around a hex key is ignored.
func ParseKey(data []byte) ([]byte, error) {
	raw := data
	if len(raw) == KeySize+2 && bytes.HasSuffix(raw, []byte("\r\n")) {
		raw = raw[:KeySize]
	} else if len(raw) == KeySize+1 && raw[KeySize] == '\n' {
		raw = raw[:KeySize]
	}
	if len(raw) == KeySize {
		return append([]byte(nil), raw...), nil
	}
	hexKey := bytes.TrimSpace(data)
	if len(hexKey) != KeySize*2 {
		return nil, ErrKeySize
	}
	key := make([]byte, KeySize)
	if _, err := hex.Decode(key, hexKey); err != nil {
		return nil, fmt.Errorf("invalid hex key: %v", err)
	}
	return key, nil
}

// EncryptBlock zero-pads plaintext to one block and encrypts it.
func EncryptBlock(block cipher.Block, plaintext []byte) ([]byte, error) {
	size := block.BlockSize()
	if len(plaintext) > size {
		return nil, ErrBlockTooLong
	}
	src := make([]byte, size)
	copy(src, plaintext)
	dst := make([]byte, size)
	block.Encrypt(dst, src)
	return dst, nil
}
