package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageKey(t *testing.T) {
	key := ImageKey("contests", "Banner.PNG")
	assert.True(t, strings.HasPrefix(key, "contests/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Len(t, key, len("contests/")+36+len(".png"))

	assert.NotEqual(t, key, ImageKey("contests", "Banner.PNG"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/users/a.jpg", PublicURL("https://cdn.example.com/", "users/a.jpg"))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore("https://cdn.test")
	url, err := m.Put(context.Background(), "users/x.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/users/x.png", url)

	obj, ok := m.Get("users/x.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []byte("png-bytes"), obj.Data)
	assert.Equal(t, 1, m.Len())
}
