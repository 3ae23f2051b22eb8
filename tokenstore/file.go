package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	campus "github.com/campushq/campus-go"
)

// File persists the credential pair as a JSON file, surviving process
// restarts. The file is written with owner-only permissions via a temp file
// and rename, so a crash mid-write never leaves a torn pair behind.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a file-backed store at the given path. Parent directories
// are created on first Save.
func NewFile(path string) *File {
	return &File{path: path}
}

type filePair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Save persists the pair, replacing any previous one.
func (f *File) Save(_ context.Context, pair campus.CredentialPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(filePair{Access: pair.Access, Refresh: pair.Refresh})
	if err != nil {
		return fmt.Errorf("campus/tokenstore: marshal credential: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("campus/tokenstore: create directory: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("campus/tokenstore: write credential: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("campus/tokenstore: replace credential file: %w", err)
	}
	return nil
}

// Load returns the stored pair, or ErrUnauthenticated when no file exists.
func (f *File) Load(_ context.Context) (campus.CredentialPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return campus.CredentialPair{}, campus.ErrUnauthenticated
		}
		return campus.CredentialPair{}, fmt.Errorf("campus/tokenstore: read credential: %w", err)
	}

	var p filePair
	if err := json.Unmarshal(data, &p); err != nil {
		return campus.CredentialPair{}, fmt.Errorf("campus/tokenstore: decode credential: %w", err)
	}

	pair := campus.CredentialPair{Access: p.Access, Refresh: p.Refresh}
	if pair.Empty() {
		return campus.CredentialPair{}, campus.ErrUnauthenticated
	}
	return pair, nil
}

// Clear removes the credential file. A missing file is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("campus/tokenstore: remove credential file: %w", err)
	}
	return nil
}
