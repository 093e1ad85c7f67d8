package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// SecurityMethod selects how API keys are stored on disk.
type SecurityMethod string

const (
	// SecurityPlainText keeps keys in <data_dir>/credentials.toml (0600).
	SecurityPlainText SecurityMethod = "plaintext"
	// SecuritySSHKey keeps keys in <data_dir>/credentials.enc, sealed with a
	// key derived from an ed25519 SSH key.
	SecuritySSHKey SecurityMethod = "ssh_key"
)

// CredentialStore holds API keys by source name. Source names are case
// insensitive. It is safe for concurrent use: the lazy vision path resolves
// credentials while text requests are running.
type CredentialStore struct {
	method     SecurityMethod
	sshKeyPath string

	mu         sync.RWMutex
	passphrase string
	keys       map[string]string
	sealer     *credentialSealer
}

func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	return &CredentialStore{
		method:     method,
		sshKeyPath: sshKeyPath,
		keys:       make(map[string]string),
	}
}

// SetPassphrase sets the passphrase of an encrypted SSH key. The sealing key
// is derived again on next use.
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passphrase = passphrase
	c.sealer = nil
}

func (c *CredentialStore) GetMethod() SecurityMethod {
	return c.method
}

func (c *CredentialStore) Get(source string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[normalizeSource(source)]
}

func (c *CredentialStore) Set(source, apiKey string) error {
	name := normalizeSource(source)
	if name == "" {
		return fmt.Errorf("source is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[name] = apiKey
	return nil
}

func (c *CredentialStore) Delete(source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, normalizeSource(source))
	return nil
}

// Load replaces the in-memory keys with the ones on disk. A missing file is
// an empty store.
func (c *CredentialStore) Load(dataDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := c.path(dataDir)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c.keys = make(map[string]string)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	keys, err := c.decode(raw)
	if err != nil {
		return err
	}
	c.keys = make(map[string]string, len(keys))
	for source, key := range keys {
		c.keys[normalizeSource(source)] = key
	}

	if DebugLog != nil {
		DebugLog.Printf("[Credentials] Loaded %d key(s) from %s", len(c.keys), path)
	}
	return nil
}

// Save writes the keys to disk with 0600 permissions.
func (c *CredentialStore) Save(dataDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := c.path(dataDir)
	if err != nil {
		return err
	}
	raw, err := c.encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) path(dataDir string) (string, error) {
	switch c.method {
	case SecurityPlainText:
		return filepath.Join(dataDir, "credentials.toml"), nil
	case SecuritySSHKey:
		return filepath.Join(dataDir, "credentials.enc"), nil
	default:
		return "", fmt.Errorf("unknown security method: %s", c.method)
	}
}

// credentialsFile is the on-disk shape of credentials.toml.
type credentialsFile struct {
	Credentials map[string]string `toml:"credentials"`
}

// decode and encode run with c.mu held.
func (c *CredentialStore) decode(raw []byte) (map[string]string, error) {
	if c.method == SecurityPlainText {
		var cf credentialsFile
		if _, err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&cf); err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		return cf.Credentials, nil
	}

	sealer, err := c.ensureSealer()
	if err != nil {
		return nil, err
	}
	plaintext, err := sealer.open(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	var keys map[string]string
	if err := json.Unmarshal(plaintext, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted credentials: %w", err)
	}
	return keys, nil
}

func (c *CredentialStore) encode() ([]byte, error) {
	if c.method == SecurityPlainText {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(credentialsFile{Credentials: c.keys}); err != nil {
			return nil, fmt.Errorf("failed to encode credentials: %w", err)
		}
		return buf.Bytes(), nil
	}

	sealer, err := c.ensureSealer()
	if err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(c.keys)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credentials: %w", err)
	}
	return sealer.seal(plaintext)
}

func (c *CredentialStore) ensureSealer() (*credentialSealer, error) {
	if c.sealer != nil {
		return c.sealer, nil
	}
	sealer, err := newCredentialSealer(c.sshKeyPath, c.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}
	c.sealer = sealer
	return sealer, nil
}

func normalizeSource(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}
