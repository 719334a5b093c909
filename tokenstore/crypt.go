package tokenstore

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// sealedPrefix marks an encrypted credentials file.
const sealedPrefix = "sealed:"

func deriveKey(passphrase string, salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, errors.Wrapf(err, "[tokenstore deriveKey] derive key")
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}

// seal encrypts plaintext as "sealed:" + base64(salt | nonce | secretbox).
func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrapf(err, "[tokenstore seal] generate salt")
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrapf(err, "[tokenstore seal] generate nonce")
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, key)

	encoded := base64.StdEncoding.EncodeToString(out)
	return []byte(sealedPrefix + encoded), nil
}

func open(passphrase string, sealed []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(string(sealed[len(sealedPrefix):]))
	if err != nil {
		return nil, errors.Wrapf(err, "[tokenstore open] decode sealed credentials")
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return nil, errors.New("[tokenstore open] sealed credentials too short")
	}

	salt := raw[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("[tokenstore open] decrypt credentials: wrong passphrase or corrupted file")
	}
	return plaintext, nil
}

func isSealed(b []byte) bool {
	return len(b) >= len(sealedPrefix) && string(b[:len(sealedPrefix)]) == sealedPrefix
}
