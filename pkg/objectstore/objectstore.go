package objectstore

//go:generate mockgen -destination=mocks/objectstore_mock.go -package=mocks github.com/devsapp/serverless-automl-api/pkg/objectstore ObjectStore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
)

const (
	MethodGet = "GET"
	MethodPut = "PUT"
)

// ErrNotFound returned by Get when the object key is absent
var ErrNotFound = errors.New("objectstore: object not found")

// ObjectStore the blob storage datasets and model artifacts live in.
// Delete of a missing key is not an error.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List keys under prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// SignURL time-limited url for method GET or PUT on key
	SignURL(ctx context.Context, key, method string, expire time.Duration) (string, error)
}

// New object store selected by conf.ObjectStoreType
func New(conf *config.Config) (ObjectStore, error) {
	switch conf.ObjectStoreType {
	case config.STORE_OSS:
		return NewOssStore(conf)
	case config.STORE_S3:
		return NewS3Store(conf)
	case config.STORE_MINIO:
		return NewMinioStore(conf)
	case config.STORE_MEMORY:
		return NewMemoryStore(conf.Bucket), nil
	default:
		return nil, fmt.Errorf("not support object store type=%s", conf.ObjectStoreType)
	}
}

func checkMethod(method string) error {
	if method != MethodGet && method != MethodPut {
		return fmt.Errorf("unsupported sign method %s", method)
	}
	return nil
}
