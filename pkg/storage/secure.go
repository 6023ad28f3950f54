package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for the local key file. Security is prioritized over
// unlock latency: N=2^18 costs roughly 256MB and under two seconds to derive,
// which keeps brute-force attacks expensive without breaking modest machines.
const (
	scryptN      = 1 << 18
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12
)

// ErrInvalidPassword is returned when the ciphertext fails to authenticate
var ErrInvalidPassword = errors.New("invalid password")

// sealedFile is the on-disk envelope. Salt and nonce are regenerated on
// every save so two saves of identical plaintext never produce the same file.
type sealedFile struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"ciphertext"`
}

// SecureFile persists an encrypted JSON document at a fixed path. Writes go
// through a temp file and rename so a crash mid-save cannot corrupt the
// previous contents.
type SecureFile struct {
	filePath string
}

// NewSecureFile creates a secure file store at the given path
func NewSecureFile(filePath string) *SecureFile {
	return &SecureFile{filePath: filePath}
}

// Path returns the backing file path
func (s *SecureFile) Path() string {
	return s.filePath
}

// Exists reports whether the file is present and non-empty
func (s *SecureFile) Exists() bool {
	info, err := os.Stat(s.filePath)
	return err == nil && info.Size() > 0
}

// Save encrypts v and atomically replaces the file contents
func (s *SecureFile) Save(v interface{}, password []byte) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	defer clear(plaintext)

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return err
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	envelope := sealedFile{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	fileData, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Load decrypts the file into v. Returns os.ErrNotExist if the file is
// missing and ErrInvalidPassword if authentication fails.
func (s *SecureFile) Load(v interface{}, password []byte) error {
	fileData, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var envelope sealedFile
	if err := json.Unmarshal(fileData, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil {
		return fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.CipherText)
	if err != nil {
		return fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrInvalidPassword
	}
	defer clear(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return nil
}

// Delete removes the backing file. Missing files are not an error.
func (s *SecureFile) Delete() error {
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func newGCM(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}
