// Package crypto implements the symmetric cipher and checksum contract of the
// HimKosh eChallan gateway.
//
// The gateway trusts a legacy client whose cipher parameters must be matched
// bit-for-bit: AES-128 in CBC mode with PKCS7 padding, where the 16-byte
// shared secret doubles as both key and initialization vector. Reusing the key
// as IV is cryptographically weak but is the wire contract; changing it breaks
// gateway-side decryption.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	dErrors "himstay/pkg/domain-errors"
)

const keySize = 16

// KeyProvider owns the shared secret. The material is loaded lazily on first
// use and memoized for the life of the process; a missing or short secret file
// is a fatal configuration error, never a silent fallback.
type KeyProvider struct {
	path string

	once sync.Once
	key  []byte
	err  error
}

func NewKeyProvider(path string) *KeyProvider {
	return &KeyProvider{path: path}
}

// Material returns the 16-byte secret used as both cipher key and IV.
func (p *KeyProvider) Material() ([]byte, error) {
	p.once.Do(func() {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			p.err = dErrors.Wrap(dErrors.CodeConfiguration,
				fmt.Sprintf("gateway secret file %q unreadable", p.path), err)
			return
		}
		trimmed := bytes.TrimRight(raw, "\r\n")
		if len(trimmed) < keySize {
			p.err = dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("gateway secret file %q holds %d bytes, need %d", p.path, len(trimmed), keySize))
			return
		}
		p.key = trimmed[:keySize]
	})
	return p.key, p.err
}

// Adapter encrypts, decrypts and checksums gateway payloads.
type Adapter struct {
	keys *KeyProvider
}

func New(keys *KeyProvider) *Adapter {
	return &Adapter{keys: keys}
}

// Encrypt enciphers an ASCII plaintext and returns standard base64.
// The gateway contract is 7-bit ASCII; any non-ASCII byte means a field was
// populated incorrectly upstream and is rejected here rather than garbled.
func (a *Adapter) Encrypt(plaintext string) (string, error) {
	if !isASCII(plaintext) {
		return "", dErrors.New(dErrors.CodeBadRequest, "payload contains non-ASCII characters")
	}
	key, err := a.keys.Material()
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "cipher init failed", err)
	}
	padded := pkcs7Pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, len(padded))
	// Key doubles as IV. Load-bearing legacy contract, see package doc.
	cipher.NewCBCEncrypter(block, key).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed base64, misaligned ciphertext and bad
// padding all surface as a single typed error carrying the cause.
func (a *Adapter) Decrypt(encoded string) (string, error) {
	key, err := a.keys.Material()
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeBadRequest, "ciphertext is not valid base64", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "cipher init failed", err)
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "ciphertext length is not a multiple of the block size")
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, key).CryptBlocks(out, raw)
	unpadded, err := pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeBadRequest, "ciphertext padding invalid", err)
	}
	if !isASCII(string(unpadded)) {
		return "", dErrors.New(dErrors.CodeBadRequest, "decrypted payload contains non-ASCII characters")
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("data length %d not padded to block size %d", len(data), blockSize)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("padding byte %d out of range", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding bytes")
		}
	}
	return data[:len(data)-padding], nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}
