package avatar_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/storage/avatar"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base, bucket, key, want string
	}{
		{"https://f002.backblazeb2.com", "fotos", "avatars/1/a.png", "https://f002.backblazeb2.com/file/fotos/avatars/1/a.png"},
		{"https://f002.backblazeb2.com/", "fotos", "/a.png", "https://f002.backblazeb2.com/file/fotos/a.png"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, avatar.PublicURL(tc.base, tc.bucket, tc.key))
	}
}

func TestOpen_NotConfigured(t *testing.T) {
	_, err := avatar.Open(context.Background(), core.StorageConfig{B2KeyID: "id"})
	assert.Equal(t, avatar.ErrNotConfigured, err)
}

func TestB2Store_Upload(t *testing.T) {
	conf := core.StorageConfig{
		B2KeyID:  os.Getenv("TEST_B2_KEY_ID"),
		B2AppKey: os.Getenv("TEST_B2_APP_KEY"),
		B2Bucket: os.Getenv("TEST_B2_BUCKET"),
	}
	if conf.B2KeyID == "" {
		t.Skip("TEST_B2_KEY_ID is not set")
	}
	ctx := context.Background()
	st, err := avatar.Open(ctx, conf)
	require.NoError(t, err)

	url, err := st.Upload(ctx, "tests/avatar.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/file/"+conf.B2Bucket+"/tests/avatar.png"))
}
