package config

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// keyDerivationMessage is signed with the SSH key to derive the AES key.
// Changing it makes every existing credentials.enc unreadable.
const keyDerivationMessage = "genadapter-credentials-key-derivation-v1"

// sealedMagic prefixes credentials.enc and is bound into the GCM tag.
var sealedMagic = []byte("GAC1")

var errNotSealed = errors.New("not a sealed credentials file")

// credentialSealer encrypts the credential file with AES-256-GCM under a key
// derived from an ed25519 SSH key.
//
// Layout: "GAC1" | nonce (12 bytes) | ciphertext+tag
type credentialSealer struct {
	aead cipher.AEAD
}

func newCredentialSealer(keyPath, passphrase string) (*credentialSealer, error) {
	signer, err := loadSSHSigner(keyPath, passphrase)
	if err != nil {
		if errors.Is(err, ErrPassphraseRequired) && DebugLog != nil {
			DebugLog.Printf("[Credentials] Key %s is encrypted but no passphrase was provided", keyPath)
		}
		return nil, err
	}

	key, err := deriveSealingKey(signer)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &credentialSealer{aead: aead}, nil
}

func (s *credentialSealer) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := append(append([]byte{}, sealedMagic...), nonce...)
	return s.aead.Seal(out, nonce, plaintext, sealedMagic), nil
}

func (s *credentialSealer) open(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, sealedMagic) {
		return nil, errNotSealed
	}
	data = data[len(sealedMagic):]

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("sealed credentials truncated")
	}
	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], sealedMagic)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (different SSH key?): %w", err)
	}
	return plaintext, nil
}

// deriveSealingKey hashes the signature over keyDerivationMessage into a
// 32-byte key.
func deriveSealingKey(signer ssh.Signer) ([]byte, error) {
	sig, err := signer.Sign(rand.Reader, []byte(keyDerivationMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	sum := sha256.Sum256(sig.Blob)
	return sum[:], nil
}
