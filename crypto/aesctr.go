// aesctr.go - AES-CTR event cipher.
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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const aesCTRKeyBytes = 16 // AES-128

// deriveCTRKey rebuilds the custom key schedule used by every language's
// agent: zero-pad the password to 16 bytes, then AES-ECB-encrypt that
// block with itself. A single-block AES encryption IS the ECB step here,
// so no separate ECB-mode cipher is needed.
func deriveCTRKey(password string) ([]byte, error) {
	pw := make([]byte, aesCTRKeyBytes)
	copy(pw, password)

	block, err := aes.NewCipher(pw)
	if err != nil {
		return nil, err
	}
	key := make([]byte, aesCTRKeyBytes)
	block.Encrypt(key, pw)
	return key, nil
}

// Encrypt implements the byte-exact AES-128-CTR scheme shared with the
// non-Go agents: an 8-byte public nonce (current-ms-mod-1000, two random
// bytes, current-time-in-seconds, little-endian) followed by ciphertext,
// base64-encoded as a whole. The remaining 8 bytes of the CTR block are
// the counter, starting at zero.
func Encrypt(plaintext, password string) (string, error) {
	key, err := deriveCTRKey(password)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, 8)
	now := time.Now()
	ms := uint16(now.UnixMilli() % 1000)
	sec := uint32(now.Unix())

	var rnd [2]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return "", fmt.Errorf("crypto: nonce random bytes: %w", err)
	}

	nonce[0] = byte(ms)
	nonce[1] = byte(ms >> 8)
	nonce[2] = rnd[0]
	nonce[3] = rnd[1]
	nonce[4] = byte(sec)
	nonce[5] = byte(sec >> 8)
	nonce[6] = byte(sec >> 16)
	nonce[7] = byte(sec >> 24)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, nonce)
	stream := cipher.NewCTR(block, iv)

	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, []byte(plaintext))

	out := append(append([]byte{}, nonce...), ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertextB64, password string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}
	if len(data) < 8 {
		return "", fmt.Errorf("crypto: ciphertext too short")
	}

	key, err := deriveCTRKey(password)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, data[:8])
	stream := cipher.NewCTR(block, iv)

	plaintext := make([]byte, len(data)-8)
	stream.XORKeyStream(plaintext, data[8:])
	return string(plaintext), nil
}
