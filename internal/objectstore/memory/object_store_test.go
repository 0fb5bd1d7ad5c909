package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgemedia/portal/internal/portal"
)

func TestObjectStore_PutAndPresign(t *testing.T) {
	t.Parallel()

	store := NewObjectStore()
	put, err := store.Put(context.Background(), "uploads/ORD-1/u1.srt", portal.Upload{
		ContentType: "application/x-subrip",
		Metadata:    map[string]string{"order-id": "ORD-1"},
		Body:        strings.NewReader("1\n00:00:01,000 --> 00:00:02,000\nhi\n"),
	})
	require.NoError(t, err)
	require.Equal(t, "uploads/ORD-1/u1.srt", put.Key)
	require.Equal(t, int64(35), put.Size)

	obj, ok := store.Get("uploads/ORD-1/u1.srt")
	require.True(t, ok)
	require.Equal(t, "application/x-subrip", obj.ContentType)
	require.Equal(t, "ORD-1", obj.Metadata["order-id"])

	url, err := store.PresignGet(context.Background(), "uploads/ORD-1/u1.srt", time.Hour)
	require.NoError(t, err)
	require.Contains(t, url, "expires_in=3600")
}

func TestObjectStore_PresignMissingKey(t *testing.T) {
	t.Parallel()

	store := NewObjectStore()
	_, err := store.PresignGet(context.Background(), "uploads/nope", time.Minute)
	require.Error(t, err)
}

func TestObjectStore_PutEmptyKey(t *testing.T) {
	t.Parallel()

	store := NewObjectStore()
	_, err := store.Put(context.Background(), "", portal.Upload{Body: strings.NewReader("x")})
	require.Error(t, err)
}
