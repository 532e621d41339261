package objectstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(conf *config.Config) (*MinioStore, error) {
	client, err := minio.New(conf.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyId, conf.AccessKeySecret, conf.AccessKeyToken),
		Secure: conf.MinioUseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client, bucket: conf.Bucket}, nil
}

func (m *MinioStore) Put(ctx context.Context, key string, body []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{})
	return err
}

func (m *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	defer object.Close()
	body, err := io.ReadAll(object)
	if err != nil {
		return nil, notFound(err)
	}
	return body, nil
}

func notFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

func (m *MinioStore) SignURL(ctx context.Context, key, method string, expire time.Duration) (string, error) {
	if err := checkMethod(method); err != nil {
		return "", err
	}
	if method == MethodPut {
		u, err := m.client.PresignedPutObject(ctx, m.bucket, key, expire)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expire, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
