package persona

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "personas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutAndGet(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.PutPersona(Persona{
		ID:       "strategist",
		Tone:     "direct",
		Audience: "executives",
	}))

	p, err := store.GetPersona("strategist")
	require.NoError(t, err)
	assert.Equal(t, "direct", p.Tone)
	assert.Equal(t, "executives", p.Audience)
}

func TestStore_PutOverwrites(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.PutPersona(Persona{ID: "writer", Tone: "casual", Audience: "readers"}))
	require.NoError(t, store.PutPersona(Persona{ID: "writer", Tone: "formal", Audience: "editors"}))

	p, err := store.GetPersona("writer")
	require.NoError(t, err)
	assert.Equal(t, "formal", p.Tone)

	personas, err := store.ListPersonas()
	require.NoError(t, err)
	assert.Len(t, personas, 1)
}

func TestStore_GetUnknown(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetPersona("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.PutPersona(Persona{ID: "tmp", Tone: "t", Audience: "a"}))
	require.NoError(t, store.DeletePersona("tmp"))

	_, err := store.GetPersona("tmp")
	require.Error(t, err)

	// Deleting again is a no-op.
	require.NoError(t, store.DeletePersona("tmp"))
}
