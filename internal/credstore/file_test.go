package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "session")

	p, err := NewFilePersister(dir)
	if err != nil {
		t.Fatalf("Failed to create file persister: %v", err)
	}

	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	cred := testCredential("A1", "R1")
	require.NoError(t, p.Save(ctx, cred))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, got.AccessToken)
	assert.Equal(t, cred.RefreshToken, got.RefreshToken)
	assert.True(t, cred.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, cred.Identity, got.Identity)
}

func TestFilePersister_Permissions(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "session")

	p, err := NewFilePersister(dir)
	require.NoError(t, err)
	require.NoError(t, p.Save(ctx, testCredential("A1", "R1")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	if info.Mode().Perm() != 0700 {
		t.Errorf("Expected directory permissions 0700, got %o", info.Mode().Perm())
	}

	for _, name := range p.FileNames() {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		if info.Mode().Perm() != 0600 {
			t.Errorf("Expected %s permissions 0600, got %o", name, info.Mode().Perm())
		}
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files may be left behind")
}

func TestFilePersister_TornPairIsNotLoaded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	require.NoError(t, err)

	require.NoError(t, p.Save(ctx, testCredential("A1", "R1")))
	oldRefresh, err := os.ReadFile(filepath.Join(dir, KeyRefreshToken+".json"))
	require.NoError(t, err)

	require.NoError(t, p.Save(ctx, testCredential("A2", "R2")))
	// Simulate a writer that died after replacing only the refresh record.
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyRefreshToken+".json"), oldRefresh, 0600))

	_, err = p.Load(ctx)
	assert.True(t, errors.Is(err, ErrTornRecords), "expected ErrTornRecords for torn pair, got %v", err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFilePersister_MissingRefreshIsNotLoaded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	require.NoError(t, err)

	require.NoError(t, p.Save(ctx, testCredential("A1", "R1")))
	require.NoError(t, os.Remove(filepath.Join(dir, KeyRefreshToken+".json")))

	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilePersister_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	require.NoError(t, err)

	require.NoError(t, p.Delete(ctx))
	require.NoError(t, p.Save(ctx, testCredential("A1", "R1")))
	require.NoError(t, p.Delete(ctx))
	require.NoError(t, p.Delete(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilePersister_SurvivesNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p1, err := NewFilePersister(dir)
	require.NoError(t, err)
	require.NoError(t, New(p1).Set(ctx, testCredential("A1", "R1")))

	p2, err := NewFilePersister(dir)
	require.NoError(t, err)
	s := New(p2)
	found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)

	got, _ := s.Get()
	assert.Equal(t, "A1", got.AccessToken)
	assert.Equal(t, "jane@example.com", got.Identity.Email)
}
