package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned when no secret is stored under a name
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore keeps small secrets such as the FTP password out of the config file
type SecretStore interface {
	Save(name, value string) error
	Load(name string) (string, error)
	Delete(name string) error
	Name() string
}

// NewSecretStore prefers the system keyring and falls back to an encrypted file under baseDir
func NewSecretStore(serviceName, baseDir string) (SecretStore, error) {
	if keyringAvailable(serviceName) {
		return NewKeyringStore(serviceName), nil
	}
	return NewEncryptedFileStore(baseDir)
}

func keyringAvailable(serviceName string) bool {
	const probe = "sheetmirror-probe"
	if err := keyring.Set(serviceName, probe, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, probe)
	return true
}

// KeyringStore uses the system keyring
type KeyringStore struct {
	serviceName string
}

// NewKeyringStore creates a keyring-backed secret store
func NewKeyringStore(serviceName string) *KeyringStore {
	return &KeyringStore{serviceName: serviceName}
}

func (s *KeyringStore) Save(name, value string) error {
	return keyring.Set(s.serviceName, name, value)
}

func (s *KeyringStore) Load(name string) (string, error) {
	value, err := keyring.Get(s.serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return value, err
}

func (s *KeyringStore) Delete(name string) error {
	err := keyring.Delete(s.serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrSecretNotFound
	}
	return err
}

func (s *KeyringStore) Name() string {
	return "system-keyring"
}

var secretNamePattern = regexp.MustCompile(`^[A-Za-z0-9._@-]+$`)

// EncryptedFileStore stores AES-GCM encrypted secrets, one file per name
type EncryptedFileStore struct {
	baseDir string
	key     []byte
}

// NewEncryptedFileStore creates an encrypted file store, generating its key on first use
func NewEncryptedFileStore(baseDir string) (*EncryptedFileStore, error) {
	key, err := getOrCreateEncryptionKey(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}
	return &EncryptedFileStore{baseDir: baseDir, key: key}, nil
}

func (s *EncryptedFileStore) Save(name, value string) error {
	path, err := s.secretPath(name)
	if err != nil {
		return err
	}
	encrypted, err := s.encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, encrypted, 0600)
}

func (s *EncryptedFileStore) Load(name string) (string, error) {
	path, err := s.secretPath(name)
	if err != nil {
		return "", err
	}
	encrypted, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", err
	}
	plain, err := s.decrypt(encrypted)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *EncryptedFileStore) Delete(name string) error {
	path, err := s.secretPath(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrSecretNotFound
	}
	return err
}

func (s *EncryptedFileStore) Name() string {
	return "encrypted-file"
}

func (s *EncryptedFileStore) secretPath(name string) (string, error) {
	if !secretNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	return filepath.Join(s.baseDir, "secrets", name+".enc"), nil
}

func (s *EncryptedFileStore) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *EncryptedFileStore) decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(s.key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// getOrCreateEncryptionKey loads baseDir/.keyfile or writes a fresh 256-bit key there
func getOrCreateEncryptionKey(baseDir string) ([]byte, error) {
	keyFile := filepath.Join(baseDir, ".keyfile")

	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(data))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, err
	}
	return key, nil
}
