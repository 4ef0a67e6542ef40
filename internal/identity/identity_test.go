package identity

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

func TestGetOrCreateUserID_Idempotent(t *testing.T) {
	s := NewStore(NewMemoryKV())

	first, err := s.GetOrCreateUserID()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := s.GetOrCreateUserID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetOrCreateUserID_KeepsExisting(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(KeyUserID, "user_123_abc"))

	id, err := NewStore(kv).GetOrCreateUserID()
	require.NoError(t, err)
	assert.Equal(t, "user_123_abc", id)
}

func TestGetOrCreateUserID_Concurrent(t *testing.T) {
	s := NewStore(NewMemoryKV())

	ids := make([]string, 16)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.GetOrCreateUserID()
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestSetUsername(t *testing.T) {
	s := NewStore(NewMemoryKV())

	_, ok, err := s.Username()
	require.NoError(t, err)
	assert.False(t, ok)

	name, err := s.SetUsername("  alice  ")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	got, ok, err := s.Username()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", got)
}

func TestSetUsername_Validation(t *testing.T) {
	s := NewStore(NewMemoryKV())

	tests := []struct {
		raw  string
		want string
	}{
		{"", MsgUsernameRequired},
		{"   ", MsgUsernameRequired},
		{"ab", MsgUsernameLength},
		{strings.Repeat("x", 31), MsgUsernameLength},
	}
	for _, tt := range tests {
		_, err := s.SetUsername(tt.raw)
		require.Error(t, err, tt.raw)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, tt.want, apperrors.Message(err, ""))
	}

	_, ok, err := s.Username()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearUsername_KeepsUserID(t *testing.T) {
	s := NewStore(NewMemoryKV())
	id, err := s.GetOrCreateUserID()
	require.NoError(t, err)
	_, err = s.SetUsername("alice")
	require.NoError(t, err)

	require.NoError(t, s.ClearUsername())

	_, ok, err := s.Username()
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := s.GetOrCreateUserID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

// ---------------------------------------------------------------------------
// FileKV
// ---------------------------------------------------------------------------

func TestFileKV_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")

	s := NewStore(NewFileKV(path))
	id, err := s.GetOrCreateUserID()
	require.NoError(t, err)
	_, err = s.SetUsername("alice")
	require.NoError(t, err)

	reopened := NewStore(NewFileKV(path))
	again, err := reopened.GetOrCreateUserID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
	name, ok, err := reopened.Username()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestFileKV_MissingFileIsEmpty(t *testing.T) {
	kv := NewFileKV(filepath.Join(t.TempDir(), "none.json"))

	_, ok, err := kv.Get(KeyUserID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, kv.Delete(KeyUserID))
}

func TestFileKV_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	kv := NewFileKV(filepath.Join(dir, "identity.json"))

	require.NoError(t, kv.Set("a", "1"))
	require.NoError(t, kv.Set("b", "2"))
	require.NoError(t, kv.Delete("a"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "identity.json", entries[0].Name())
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileKV(path).Get(KeyUserID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode identity file")
}
