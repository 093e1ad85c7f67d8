package config

import (
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// ErrPassphraseRequired is returned when the configured SSH key is
// passphrase protected and GENADAPTER_SSH_PASSPHRASE is not set.
var ErrPassphraseRequired = errors.New("SSH key is encrypted: passphrase required (set GENADAPTER_SSH_PASSPHRASE)")

// preferredSSHKeys are probed in ~/.ssh, in order.
var preferredSSHKeys = []string{"genadapter_ed25519", "id_ed25519"}

// loadSSHSigner parses the private key at keyPath, decrypting it with
// passphrase when it is protected. Only ed25519 keys are accepted: the
// sealing key is derived from a signature, and only ed25519 signatures are
// deterministic.
func loadSSHSigner(keyPath, passphrase string) (ssh.Signer, error) {
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	var missing *ssh.PassphraseMissingError
	switch {
	case err == nil:
	case errors.As(err, &missing):
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt SSH key %s (wrong passphrase?): %w", keyPath, err)
		}
	default:
		return nil, fmt.Errorf("failed to parse SSH key %s: %w", keyPath, err)
	}

	if keyType := signer.PublicKey().Type(); keyType != ssh.KeyAlgoED25519 {
		return nil, fmt.Errorf("SSH key %s is %s; credential encryption needs an ed25519 key", keyPath, keyType)
	}
	return signer, nil
}

// FindSSHKeys returns the preferred private keys present in ~/.ssh.
func FindSSHKeys() ([]string, error) {
	sshDir := filepath.Join(GetHomeDir(), ".ssh")
	if _, err := os.Stat(sshDir); os.IsNotExist(err) {
		return nil, nil
	}

	var found []string
	for _, name := range preferredSSHKeys {
		path := filepath.Join(sshDir, name)
		if looksLikePrivateKey(path) {
			found = append(found, path)
		}
	}
	return found, nil
}

func looksLikePrivateKey(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	block, _ := pem.Decode(data)
	return block != nil && block.Type == "OPENSSH PRIVATE KEY"
}
