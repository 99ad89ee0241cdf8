// security.go - channel secret derivation and signed envelopes.
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

// Package crypto implements the agent SDK's CryptoProvider: channel
// secret derivation, AES-CTR event encryption, HMAC signing, and RSA-OAEP
// for the password-exchange protocol. Every algorithm here must stay
// byte-exact with the original Python/JS agents it interoperates with,
// so none of these routines may change shape without breaking the wire
// protocol.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/hmdev/agentsdk/constants"
	"github.com/hmdev/agentsdk/internal/logging"
)

var log = logging.GetLogger("crypto")

// DeriveChannelSecret derives the per-channel symmetric key from a
// channel name and password via PBKDF2-HMAC-SHA256. The result is
// deterministic and must match every other language's agent byte-exact.
func DeriveChannelSecret(channelName, password string) string {
	combined := []byte(channelName + password)
	key := pbkdf2.Key(combined, []byte(constants.KDFSalt), constants.KDFIterations, constants.KDFKeyLength, sha256.New)
	return constants.ChannelSecretPrefix + base64.RawURLEncoding.EncodeToString(key)
}

// Hash returns the lowercase hex HMAC-SHA256 of message under key.
func Hash(message, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// cipherEnvelope is the JSON wrapper produced by EncryptAndSign and
// consumed by DecryptAndVerify.
type cipherEnvelope struct {
	Cipher string `json:"cipher"`
	Hash   string `json:"hash"`
}

// EncryptAndSign encrypts message under key and returns the JSON
// envelope {"cipher","hash"} where hash is computed over the plaintext.
func EncryptAndSign(message, key string) (string, error) {
	cipher, err := Encrypt(message, key)
	if err != nil {
		return "", fmt.Errorf("crypto: encrypt: %w", err)
	}
	env := cipherEnvelope{Cipher: cipher, Hash: Hash(message, key)}
	out, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("crypto: marshal envelope: %w", err)
	}
	return string(out), nil
}

// DecryptAndVerify decrypts a JSON envelope produced by EncryptAndSign and
// verifies the plaintext's HMAC before returning it. Any failure —
// malformed envelope, bad ciphertext, or a hash mismatch — returns
// ("", false) rather than an error: a malformed peer message must never
// kill the receive pump.
func DecryptAndVerify(envelope, key string) (string, bool) {
	var env cipherEnvelope
	if err := json.Unmarshal([]byte(envelope), &env); err != nil {
		log.Debugf("decryptAndVerify: malformed envelope: %v", err)
		return "", false
	}

	message, err := Decrypt(env.Cipher, key)
	if err != nil {
		log.Debugf("decryptAndVerify: decrypt failed: %v", err)
		return "", false
	}

	if Hash(message, key) != env.Hash {
		log.Debug("decryptAndVerify: hash mismatch")
		return "", false
	}
	return message, true
}
