package cookiejar

import (
	"testing"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/supplybot/internal/portal"
)

func testKeys() (hash, block []byte) {
	return securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	hash, block := testKeys()
	s := New(t.TempDir(), hash, block, 0)

	cookies := []portal.Cookie{
		{Name: "wbx-validation-key", Value: "abc", Domain: ".wildberries.ru", Path: "/", Secure: true},
		{Name: "session", Value: "xyz", HTTPOnly: true, SameSite: "Lax"},
	}
	require.NoError(t, s.Save("7701234567", cookies))

	got, err := s.Load("7701234567")
	require.NoError(t, err)
	assert.Equal(t, cookies, got)
}

func TestLoadMissingJar(t *testing.T) {
	hash, block := testKeys()
	s := New(t.TempDir(), hash, block, 0)

	got, err := s.Load("unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadWithWrongKeysIsAbsent(t *testing.T) {
	dir := t.TempDir()
	hash, block := testKeys()
	s := New(dir, hash, block, 0)
	require.NoError(t, s.Save("acct", []portal.Cookie{{Name: "a", Value: "b"}}))

	otherHash, otherBlock := testKeys()
	other := New(dir, otherHash, otherBlock, 0)
	got, err := other.Load("acct")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveRejectsEmptySet(t *testing.T) {
	hash, block := testKeys()
	s := New(t.TempDir(), hash, block, 0)
	assert.Error(t, s.Save("acct", nil))
}

func TestJarsAreIsolatedPerAccount(t *testing.T) {
	hash, block := testKeys()
	s := New(t.TempDir(), hash, block, 0)
	require.NoError(t, s.Save("one", []portal.Cookie{{Name: "a", Value: "1"}}))
	require.NoError(t, s.Save("two", []portal.Cookie{{Name: "a", Value: "2"}}))

	got, err := s.Load("one")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Value)
}
