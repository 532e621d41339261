package objectstore

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store ObjectStore) {
	ctx := context.Background()
	key := "datasets/ds-test/train.csv"
	defer store.Delete(ctx, key)

	// upload
	require.NoError(t, store.Put(ctx, key, []byte("a,b\n1,2\n")))

	// download
	body, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))

	keys, err := store.List(ctx, "datasets/ds-test/")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	u, err := store.SignURL(ctx, key, MethodGet, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, u)
	_, err = store.SignURL(ctx, key, "DELETE", time.Minute)
	assert.Error(t, err)

	// delete, twice is fine
	assert.NoError(t, store.Delete(ctx, key))
	assert.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore("bucket"))
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("bucket")
	body := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", body))
	body[0] = 'x'
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemorySignURL(t *testing.T) {
	store := NewMemoryStore("bucket")
	u, err := store.SignURL(context.Background(), "models/j1/model.json", MethodPut, time.Hour)
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "bucket", parsed.Host)
	assert.Equal(t, "/models/j1/model.json", parsed.Path)
	assert.Equal(t, MethodPut, parsed.Query().Get("method"))
}

func TestNew(t *testing.T) {
	conf := config.DefaultConfig()
	conf.ObjectStoreType = config.STORE_MEMORY
	store, err := New(conf)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	conf.ObjectStoreType = "ftp"
	_, err = New(conf)
	assert.Error(t, err)
}

func TestOss(t *testing.T) {
	conf := config.DefaultConfig()
	if os.Getenv("OSS_TEST_BUCKET") == "" || conf.AccessKeyId == "" {
		t.Skip("OSS_TEST_BUCKET or ACCESS_KEY_ID not set")
	}
	conf.Bucket = os.Getenv("OSS_TEST_BUCKET")
	store, err := NewOssStore(conf)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestMinio(t *testing.T) {
	conf := config.DefaultConfig()
	conf.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	conf.Bucket = os.Getenv("MINIO_TEST_BUCKET")
	if conf.MinioEndpoint == "" || conf.Bucket == "" {
		t.Skip("MINIO_ENDPOINT or MINIO_TEST_BUCKET not set")
	}
	store, err := NewMinioStore(conf)
	require.NoError(t, err)
	exerciseStore(t, store)
}
