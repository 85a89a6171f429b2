// Package cryptox implements the message encryption protocol shared by all
// devices: PBKDF2 master-key derivation and per-message AES-CBC envelopes.
//
// The protocol has no integrity tag: CBC without a MAC detects tampering
// only through padding corruption, and unreliably. Kept for compatibility
// with existing ciphertext; an AEAD mode is a possible future migration.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/antonpetrovs/whisperline/internal/common"
)

const (
	// Pbkdf2Iterations is fixed by the protocol: every device must derive
	// the same key from the same (password, salt) pair.
	Pbkdf2Iterations = 100_000

	// MasterKeySize is the AES-256 key length in bytes.
	MasterKeySize = 32

	// SaltSize is the per-account salt length in bytes (base64 on the wire).
	SaltSize = 32

	ivSize = aes.BlockSize
)

// Envelope is the encrypted form of a single message body. Ciphertext and IV
// are base64 strings because that is how they travel and how the server
// stores them.
type Envelope struct {
	Ciphertext string
	IV         string
}

// DeriveMasterKey derives the 256-bit master key from a password and the
// account's base64-encoded salt using PBKDF2-HMAC-SHA256.
//
// It is a pure function: identical (password, salt) pairs always yield a
// bytewise-identical key, which is what lets a newly paired device decrypt
// history created elsewhere. The only failure mode is a malformed salt
// encoding, reported as common.ErrKeyDerivation.
func DeriveMasterKey(password string, saltB64 string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding: %v", common.ErrKeyDerivation, err)
	}
	return pbkdf2.Key([]byte(password), salt, Pbkdf2Iterations, MasterKeySize, sha256.New), nil
}

// GenerateSalt returns a fresh random account salt, base64-encoded.
func GenerateSalt() string {
	return base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(SaltSize))
}

// EncodeKey and DecodeKey convert the master key to and from its base64
// transfer form (used in the pairing payload).
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

func DecodeKey(keyB64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad key encoding: %v", common.ErrValidation, err)
	}
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrValidation, MasterKeySize, len(key))
	}
	return key, nil
}

// Encrypt encrypts one message body with AES-256-CBC and PKCS#7 padding.
// A fresh cryptographically random 16-byte IV is generated on every call;
// IV reuse under the same key must never happen, including under concurrent
// calls, which is why the IV never leaves this function except inside the
// returned envelope.
func Encrypt(key []byte, plaintext string) (Envelope, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("new cipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("iv generation: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt reverses Encrypt. It returns common.ErrDecryption when the
// ciphertext or IV is unreadable under the given key: bad base64, a length
// inconsistent with the block size, or invalid padding. Decrypting with a
// wrong key lands here too and callers are expected to recover from it.
func Decrypt(key []byte, ciphertextB64, ivB64 string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", common.ErrDecryption)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv encoding", common.ErrDecryption)
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", common.ErrDecryption, ivSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d not a block multiple", common.ErrDecryption, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length", common.ErrDecryption)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("%w: invalid padding", common.ErrDecryption)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: invalid padding", common.ErrDecryption)
		}
	}
	return data[:len(data)-padding], nil
}
