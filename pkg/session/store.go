package session

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// Store persists a session between runs.
type Store interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

var sealedMagic = []byte("xps1")

const (
	saltSize  = 16
	nonceSize = 24
)

// FileStore keeps the session in a single file. With a passphrase the file
// is sealed with NaCl secretbox under a scrypt-derived key; without one it is
// plain JSON readable only by the owner.
type FileStore struct {
	path       string
	passphrase []byte
}

// NewFileStore returns a store at path. An empty path selects DefaultPath.
func NewFileStore(path, passphrase string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	fs := &FileStore{path: path}
	if passphrase != "" {
		fs.passphrase = []byte(passphrase)
	}
	return fs
}

// DefaultPath returns the per-user location of the session file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "explorer", "session")
}

// Path returns the file backing the store.
func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads the saved session.
func (fs *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if bytes.HasPrefix(data, sealedMagic) {
		if data, err = fs.open(data[len(sealedMagic):]); err != nil {
			return nil, err
		}
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save writes the session, replacing any previous one.
func (fs *FileStore) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if fs.passphrase != nil {
		if data, err = fs.seal(data); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the saved session.
func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (fs *FileStore) key(salt []byte) (*[32]byte, error) {
	derived, err := scrypt.Key(fs.passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}

// seal layout: magic | salt | nonce | box.
func (fs *FileStore) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("session salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}
	key, err := fs.key(salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(sealedMagic)+saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, sealedMagic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func (fs *FileStore) open(sealed []byte) ([]byte, error) {
	if fs.passphrase == nil {
		return nil, errors.New("session is sealed and no passphrase is configured")
	}
	if len(sealed) < saltSize+nonceSize+secretbox.Overhead {
		return nil, errors.New("session file is truncated")
	}
	salt := sealed[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[saltSize:saltSize+nonceSize])

	key, err := fs.key(salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, sealed[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("session file cannot be opened with this passphrase")
	}
	return plain, nil
}
