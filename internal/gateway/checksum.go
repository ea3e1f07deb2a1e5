package gateway

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"github.com/go-faster/errors"
	"sort"
	"strings"
)

// Paytm checksum: sha256 of sorted "|"-joined values plus salt,
// encrypted with AES-128-CBC under merchant key.

const (
	checksumField = "CHECKSUMHASH"
	saltLength    = 4
	// MerchantKeySize is AES-128 key length
	MerchantKeySize = 16
)

var checksumIV = []byte("@@@@&&&&####$$$$")

var (
	errChecksumFormat = errors.New("malformed checksum")
	errMerchantKey    = errors.New("merchant key must be 16 bytes")
)

func newCipher(key string) (cipher.Block, error) {
	if len(key) != MerchantKeySize {
		return nil, errMerchantKey
	}
	return aes.NewCipher([]byte(key))
}

// GenerateChecksum returns checksum of params signed with merchant key
func GenerateChecksum(params map[string]string, key string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	return checksumWithSalt(checksumMessage(params), key, salt)
}

// VerifyChecksum reports whether checksum matches params and merchant key.
// CHECKSUMHASH itself is ignored if present in params.
func VerifyChecksum(params map[string]string, key, checksum string) bool {
	decrypted, err := decrypt(checksum, key)
	if err != nil || len(decrypted) < saltLength {
		return false
	}
	salt := decrypted[len(decrypted)-saltLength:]
	expected := checksumHash(checksumMessage(params), salt)

	return subtle.ConstantTimeCompare([]byte(expected), []byte(decrypted)) == 1
}

func checksumMessage(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == checksumField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if strings.EqualFold(v, "null") {
			v = ""
		}
		values = append(values, v)
	}
	return strings.Join(values, "|")
}

func checksumHash(msg, salt string) string {
	sum := sha256.Sum256([]byte(msg + "|" + salt))
	return hex.EncodeToString(sum[:]) + salt
}

func checksumWithSalt(msg, key, salt string) (string, error) {
	return encrypt(checksumHash(msg, salt), key)
}

func newSalt() (string, error) {
	b := make([]byte, saltLength*3/4)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "salt")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func encrypt(plain, key string) (string, error) {
	block, err := newCipher(key)
	if err != nil {
		return "", errors.Wrap(err, "merchant key")
	}
	data := pkcs7Pad([]byte(plain), block.BlockSize())
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, checksumIV).CryptBlocks(out, data)

	return base64.StdEncoding.EncodeToString(out), nil
}

func decrypt(encoded, key string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errChecksumFormat
	}
	block, err := newCipher(key)
	if err != nil {
		return "", errors.Wrap(err, "merchant key")
	}
	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return "", errChecksumFormat
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, checksumIV).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, errChecksumFormat
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errChecksumFormat
		}
	}
	return data[:len(data)-n], nil
}
