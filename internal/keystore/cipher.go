package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Encrypted values are base64(salt | iv | tag | ciphertext).
const (
	saltLength = 64
	ivLength   = 16
	tagLength  = 16
	keyLength  = 32

	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// MinKeyLength is the shortest accepted deployment secret.
const MinKeyLength = 32

// Cipher encrypts secrets at rest with AES-256-GCM.
type Cipher struct {
	secret []byte
}

// NewCipher returns a cipher keyed by the deployment secret
func NewCipher(secret string) (*Cipher, error) {
	if len(secret) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	return &Cipher{secret: []byte(secret)}, nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(c.secret, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, ivLength)
}

// Encrypt seals plaintext under a fresh salt and IV
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	buf := make([]byte, saltLength+ivLength, saltLength+ivLength+tagLength+len(plaintext))
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	salt, iv := buf[:saltLength], buf[saltLength:]

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	// Seal appends ciphertext|tag; the stored layout puts the tag first.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagLength], sealed[len(sealed)-tagLength:]
	buf = append(buf, tag...)
	buf = append(buf, ct...)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt opens a value produced by Encrypt
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if len(data) < saltLength+ivLength+tagLength {
		return "", ErrCiphertextTooShort
	}

	salt := data[:saltLength]
	iv := data[saltLength : saltLength+ivLength]
	tag := data[saltLength+ivLength : saltLength+ivLength+tagLength]
	ct := data[saltLength+ivLength+tagLength:]

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ct)+tagLength)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plaintext), nil
}

// EncryptFile seals binary content. The content is base64-encoded before
// sealing.
func (c *Cipher) EncryptFile(content []byte) (string, error) {
	return c.Encrypt(base64.StdEncoding.EncodeToString(content))
}

// DecryptFile opens a value produced by EncryptFile
func (c *Cipher) DecryptFile(encoded string) ([]byte, error) {
	b64, err := c.Decrypt(encoded)
	if err != nil {
		return nil, err
	}
	content, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding content: %v", ErrDecryption, err)
	}
	return content, nil
}
