package credstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"payrollctl/pkg/auth"
)

// DefaultStorageDir is the default credential directory relative to $HOME.
const DefaultStorageDir = ".config/payrollctl/session"

// FilePersister stores each key as <dir>/<key>.json.
//
// SECURITY: the directory is created 0700 and every file 0600. Files are
// written to a temporary name and renamed into place.
type FilePersister struct {
	dir string
}

// NewFilePersister creates dir if needed. An empty dir selects
// ~/.config/payrollctl/session.
func NewFilePersister(dir string) (*FilePersister, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential storage directory: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

// Name implements Persister.
func (p *FilePersister) Name() string { return "file" }

// Dir returns the storage directory.
func (p *FilePersister) Dir() string { return p.dir }

// FileNames returns the base names of the files this persister manages.
func (p *FilePersister) FileNames() []string {
	names := make([]string, 0, len(Keys))
	for _, k := range Keys {
		names = append(names, k+".json")
	}
	return names
}

func (p *FilePersister) path(key string) string {
	return filepath.Join(p.dir, key+".json")
}

// Load implements Persister.
func (p *FilePersister) Load(_ context.Context) (auth.Credential, error) {
	values := make(map[string][]byte, len(Keys))
	for _, key := range Keys {
		// #nosec G304 -- path is built from a fixed key, not user input
		data, err := os.ReadFile(p.path(key))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return auth.Credential{}, fmt.Errorf("failed to read %s: %w", key, err)
		}
		values[key] = data
	}
	return decodeRecords(values[KeyAccessToken], values[KeyRefreshToken], values[KeyUser])
}

// Save implements Persister.
func (p *FilePersister) Save(_ context.Context, cred auth.Credential) error {
	records, err := encodeRecords(cred)
	if err != nil {
		return err
	}
	for _, key := range Keys {
		if err := p.writeFile(key, records[key]); err != nil {
			return err
		}
	}
	return nil
}

// Delete implements Persister. The access token goes first so a concurrent
// reader stops seeing a session as soon as possible.
func (p *FilePersister) Delete(_ context.Context) error {
	var errs []error
	for i := len(Keys) - 1; i >= 0; i-- {
		err := os.Remove(p.path(Keys[i]))
		if err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *FilePersister) writeFile(key string, data []byte) error {
	tmp, err := os.CreateTemp(p.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict permissions for %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, p.path(key)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}
