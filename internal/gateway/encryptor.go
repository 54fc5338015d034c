package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"fmt"
	"strings"
)

// initialisationVector is fixed by the gateway firmware. Every message on the
// wire, in both directions, uses the same IV.
var initialisationVector = [aes.BlockSize]byte{
	0x88, 0xA6, 0xB0, 0x79, 0x5D, 0x85, 0xDB, 0xFC,
	0xE6, 0xE0, 0xB3, 0xE9, 0xA6, 0x29, 0x65, 0x4B,
}

// Encryptor implements the gateway's AES-256-CBC transport cipher.
//
// The key is derived from the gateway EUID printed on the unit:
// MD5("Salus-" + lowercase EUID) extended with 16 zero bytes. Plaintext is
// always a JSON document; padding is PKCS#7.
type Encryptor struct {
	block cipher.Block
}

// NewEncryptor derives the transport key from the gateway EUID. The EUID is
// case-insensitive; "001E5E0D32906128" and "001e5e0d32906128" produce the
// same cipher.
func NewEncryptor(euid string) *Encryptor {
	sum := md5.Sum([]byte("Salus-" + strings.ToLower(euid)))

	key := make([]byte, 32)
	copy(key, sum[:])

	// aes.NewCipher cannot fail for a 32 byte key.
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(fmt.Sprintf("gateway: aes key setup: %v", err))
	}

	return &Encryptor{block: block}
}

// Encrypt pads the plaintext to the AES block size and encrypts it. The
// output length is always a multiple of 16 bytes and never zero.
func (e *Encryptor) Encrypt(plaintext string) []byte {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, initialisationVector[:]).CryptBlocks(out, padded)

	return out
}

// Decrypt reverses Encrypt. It fails with ErrDecode when the ciphertext is
// empty, not block aligned, or carries invalid padding, all of which point at
// a key mismatch or a corrupted response.
func (e *Encryptor) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			ErrDecode, len(ciphertext), aes.BlockSize)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, initialisationVector[:]).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// pkcs7Pad appends between 1 and blockSize bytes, each holding the pad
// length. Input that is already block aligned gains a full block of padding.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize

	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: padded length %d is not a positive multiple of %d",
			ErrDecode, len(data), blockSize)
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("%w: invalid padding byte %d", ErrDecode, padLen)
	}

	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: inconsistent padding", ErrDecode)
		}
	}

	return data[:len(data)-padLen], nil
}
