// Package secretstore reads signing material from an encrypted Badger database.
//
// The store is opened read-only: provisioning entries is done by operators with
// their own tooling, this package never writes.
package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// DefaultEntry is the entry name holding the hex private key.
const DefaultEntry = "signer/private_key"

var ErrNotFound = errors.New("secretstore: entry not found")

// Store is a read-only view over an encrypted-at-rest Badger DB.
// Encryption is provided by Badger options (value log + key registry), not by this wrapper.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 16, 24 or 32 bytes; nil opens an unencrypted DB
}

func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: path is required")
	}
	bopts := badgerOptions(opts.Path, opts.EncryptionKey).WithReadOnly(true)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "secretstore: open %s", opts.Path)
	}
	return &Store{db: db}, nil
}

func badgerOptions(path string, encryptionKey []byte) badger.Options {
	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if len(encryptionKey) > 0 {
		// Badger requires index cache for encrypted workloads
		bopts = bopts.
			WithEncryptionKey(encryptionKey).
			WithIndexCacheSize(16 << 20)
	}
	return bopts
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns a copy of the entry value. Callers own the slice and should zero it when done.
func (s *Store) Get(entry string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(entry))
	if len(k) == 0 {
		return nil, errors.New("secretstore: entry name is empty")
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrap(ErrNotFound, string(k))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "secretstore: read %s", k)
	}
	return out, nil
}

// ParseKey expects 32 bytes (hex or base64). Returns nil if input is empty.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// Prefer hex so a 64-char hex string is never read as base64
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, errors.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, errors.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
