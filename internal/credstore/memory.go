package credstore

import (
	"context"
	"sync"

	"payrollctl/pkg/auth"
)

// MemoryPersister keeps the credential only for the life of the process.
type MemoryPersister struct {
	mu   sync.Mutex
	cred *auth.Credential
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Name implements Persister.
func (p *MemoryPersister) Name() string { return "memory" }

// Load implements Persister.
func (p *MemoryPersister) Load(_ context.Context) (auth.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cred == nil {
		return auth.Credential{}, ErrNotFound
	}
	return *p.cred, nil
}

// Save implements Persister.
func (p *MemoryPersister) Save(_ context.Context, cred auth.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cred = &cred
	return nil
}

// Delete implements Persister.
func (p *MemoryPersister) Delete(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cred = nil
	return nil
}
