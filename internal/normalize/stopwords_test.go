package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStopwords_createsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "stopwords.txt")
	s, err := LoadStopwords(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultStopwords, s.List())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(DefaultStopwords, "\n")+"\n", string(data))
}

func TestLoadStopwords_readsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	require.NoError(t, os.WriteFile(path, []byte("Le\n\n  la \nle\nsur\n"), 0644))

	s, err := LoadStopwords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"le", "la", "sur"}, s.List())
	assert.True(t, s.Contains("sur"))
	assert.False(t, s.Contains("Sur"))
}

func TestStopwordSet_AddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	s, err := LoadStopwords(path)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Add("   "), ErrEmptyStopword)
	assert.ErrorIs(t, s.Add("LES"), ErrDuplicateStopword)
	require.NoError(t, s.Add("Pour"))
	assert.True(t, s.Contains("pour"))

	assert.ErrorIs(t, s.Remove(""), ErrEmptyStopword)
	assert.ErrorIs(t, s.Remove("absent"), ErrUnknownStopword)
	require.NoError(t, s.Remove("la"))
	assert.False(t, s.Contains("la"))

	reloaded, err := LoadStopwords(path)
	require.NoError(t, err)
	assert.Equal(t, s.List(), reloaded.List())
	assert.Equal(t, "pour", reloaded.List()[reloaded.Len()-1])
}

func TestStopwordSet_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	s, err := LoadStopwords(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("chat\n"), 0644))
	assert.False(t, s.Contains("chat"))
	require.NoError(t, s.Reload())
	assert.True(t, s.Contains("chat"))
	assert.Equal(t, 1, s.Len())
}

func TestStopwordSet_inMemory(t *testing.T) {
	s := NewStopwordSet("a", "", "a", "b")
	assert.Equal(t, []string{"a", "b"}, s.List())
	require.NoError(t, s.Add("c"))
	require.NoError(t, s.Reload())
	assert.Equal(t, 3, s.Len())

	var nilSet *StopwordSet
	assert.False(t, nilSet.Contains("a"))
}
