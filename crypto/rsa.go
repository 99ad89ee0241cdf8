// rsa.go - RSA-OAEP keypair and encrypt/decrypt.
// Copyright (C) 2024  hmdev contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

const rsaKeyBits = 2048

// KeyPair is an ephemeral RSA keypair used at most once by the
// password-exchange protocol.
type KeyPair struct {
	Private   *rsa.PrivateKey
	PublicPEM string
}

// RSAGenerate creates a fresh 2048-bit RSA keypair and PEM-encodes the
// public half for transmission in a password-request event.
func RSAGenerate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("crypto: rsa generate: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}

	return &KeyPair{Private: priv, PublicPEM: string(pem.EncodeToMemory(block))}, nil
}

// loadPublicKey accepts a public key as PEM or as base64(DER), matching
// the original agent's tolerant parsing.
func loadPublicKey(keyStr string) (*rsa.PublicKey, error) {
	s := strings.TrimSpace(keyStr)

	var der []byte
	if strings.Contains(s, "-----BEGIN") {
		block, _ := pem.Decode([]byte(s))
		if block == nil {
			return nil, fmt.Errorf("crypto: invalid PEM public key")
		}
		der = block.Bytes
	} else {
		var err error
		der, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			der, err = base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("crypto: invalid base64 public key: %w", err)
			}
		}
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("crypto: public key is not RSA")
	}
	return rsaPub, nil
}

// RSAEncrypt encrypts plaintext with an RSA-OAEP-SHA256 public key given
// as PEM or base64 DER, returning base64 ciphertext.
func RSAEncrypt(publicKeyPEMOrB64, plaintext string) (string, error) {
	pub, err := loadPublicKey(publicKeyPEMOrB64)
	if err != nil {
		return "", err
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("crypto: rsa encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// RSADecrypt decrypts base64 ciphertext with an RSA-OAEP-SHA256 private
// key, returning UTF-8 plaintext.
func RSADecrypt(priv *rsa.PrivateKey, ciphertextB64 string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: rsa decrypt: %w", err)
	}
	return string(plaintext), nil
}
