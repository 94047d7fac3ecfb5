package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{"type":"service_account","project_id":"demo"}`

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s := &FileStore{Path: path}
	data, err := s.Credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != sampleJSON {
		t.Errorf("expected %q, got %q", sampleJSON, data)
	}
}

func TestFileStore_Missing(t *testing.T) {
	s := &FileStore{Path: filepath.Join(t.TempDir(), "missing.json")}

	_, err := s.Credentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	src := []byte(sampleJSON)
	s := NewMemoryStore(src)

	// Mutating the source must not affect the store.
	src[0] = 'X'

	data, err := s.Credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != sampleJSON {
		t.Errorf("store shares backing array with caller: %q", data)
	}
}

func TestMemoryStore_Empty(t *testing.T) {
	s := NewMemoryStore(nil)

	_, err := s.Credentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv("SPEECH_SA_JSON", sampleJSON)

	s := &EnvStore{Var: "SPEECH_SA_JSON"}
	data, err := s.Credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != sampleJSON {
		t.Errorf("expected %q, got %q", sampleJSON, data)
	}
}

func TestEnvStore_Unset(t *testing.T) {
	t.Setenv("SPEECH_SA_JSON", "")

	s := &EnvStore{Var: "SPEECH_SA_JSON"}
	_, err := s.Credentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	opts, err := ClientOptions(nil)
	if err != nil {
		t.Fatalf("nil store: unexpected error: %v", err)
	}
	if len(opts) != 0 {
		t.Errorf("nil store: expected no options (ADC), got %d", len(opts))
	}

	opts, err = ClientOptions(NewMemoryStore([]byte(sampleJSON)))
	if err != nil {
		t.Fatalf("memory store: unexpected error: %v", err)
	}
	if len(opts) != 1 {
		t.Errorf("memory store: expected 1 option, got %d", len(opts))
	}

	if _, err = ClientOptions(NewMemoryStore(nil)); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty store: expected ErrNotFound, got %v", err)
	}
}
