package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/shopdesk-dev/shopdesk/internal/session"
)

func exerciseStore(t *testing.T, store session.Store) {
	t.Helper()

	_, ok, err := store.Get(session.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(session.KeyToken, "T1"))
	require.NoError(t, store.Set(session.KeyUser, `{"id":"u1"}`))

	v, ok, err := store.Get(session.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T1", v)

	require.NoError(t, store.Delete(session.KeyToken))
	require.NoError(t, store.Delete(session.KeyToken), "deleting twice is not an error")

	_, ok, err = store.Get(session.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = store.Get(session.KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"u1"}`, v)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	exerciseStore(t, NewKeyringStore("https://shop.example.com"))
}

func TestKeyringStore_NamespacedPerServer(t *testing.T) {
	keyring.MockInit()
	a := NewKeyringStore("https://a.example.com")
	b := NewKeyringStore("https://b.example.com")

	require.NoError(t, a.Set(session.KeyToken, "TA"))
	_, ok, err := b.Get(session.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "shop.json")
	store := NewFileStore(path)
	exerciseStore(t, store)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, store.Delete(session.KeyUser))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty session file should be removed")
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.json")
	require.NoError(t, NewFileStore(path).Set(session.KeyRefreshToken, "R1"))

	v, ok, err := NewFileStore(path).Get(session.KeyRefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "R1", v)
}

func TestOpenStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s, err := OpenStore("", "https://shop.example.com")
	require.NoError(t, err)
	assert.IsType(t, &KeyringStore{}, s)

	s, err = OpenStore("file", "https://shop.example.com:8443")
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)
	assert.Equal(t, "https___shop.example.com_8443.json", filepath.Base(s.(*FileStore).Path()))

	_, err = OpenStore("vault", "x")
	require.Error(t, err)
}
