// Package credentials provides pluggable storage for the service-account
// material used to authenticate against the speech backend. Stores only
// hold and hand out credential bytes; token exchange and refresh stay
// inside the Google client libraries.
package credentials

import (
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/option"
)

// ErrNotFound indicates the store holds no credentials.
var ErrNotFound = errors.New("credentials not found")

// Store supplies service-account JSON for the speech client.
type Store interface {
	// Credentials returns the raw service-account JSON.
	Credentials() ([]byte, error)
}

// FileStore reads credentials from a JSON file on disk.
type FileStore struct {
	Path string
}

func (s *FileStore) Credentials() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}

// MemoryStore holds credentials in process memory. Useful for tests and
// for embeddings that obtain credential material through their own channel.
type MemoryStore struct {
	data []byte
}

// NewMemoryStore copies data into a new in-memory store.
func NewMemoryStore(data []byte) *MemoryStore {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &MemoryStore{data: buf}
}

func (s *MemoryStore) Credentials() ([]byte, error) {
	if len(s.data) == 0 {
		return nil, ErrNotFound
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// EnvStore reads credential JSON from an environment variable.
type EnvStore struct {
	Var string
}

func (s *EnvStore) Credentials() ([]byte, error) {
	v := os.Getenv(s.Var)
	if v == "" {
		return nil, fmt.Errorf("%w: env %s is empty", ErrNotFound, s.Var)
	}
	return []byte(v), nil
}

// ClientOptions converts a store into client options for the Google API
// clients. A nil store yields no options, which leaves the client on
// Application Default Credentials.
func ClientOptions(s Store) ([]option.ClientOption, error) {
	if s == nil {
		return nil, nil
	}
	data, err := s.Credentials()
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithCredentialsJSON(data)}, nil
}
