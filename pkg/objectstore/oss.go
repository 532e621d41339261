package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/devsapp/serverless-automl-api/pkg/config"
)

const ossListMaxKeys = 1000

type OssStore struct {
	bucket *oss.Bucket
}

func NewOssStore(conf *config.Config) (*OssStore, error) {
	client, err := oss.New(conf.OssEndpoint, conf.AccessKeyId,
		conf.AccessKeySecret, oss.SecurityToken(conf.AccessKeyToken))
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(conf.Bucket)
	if err != nil {
		return nil, err
	}
	return &OssStore{bucket: bucket}, nil
}

func (o *OssStore) Put(_ context.Context, key string, body []byte) error {
	return o.bucket.PutObject(key, bytes.NewReader(body))
}

// Get download the object into memory
func (o *OssStore) Get(_ context.Context, key string) ([]byte, error) {
	body, err := o.bucket.GetObject(key)
	if err != nil {
		var srvErr oss.ServiceError
		if errors.As(err, &srvErr) && srvErr.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (o *OssStore) Delete(_ context.Context, key string) error {
	return o.bucket.DeleteObject(key)
}

func (o *OssStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	marker := ""
	for {
		res, err := o.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.MaxKeys(ossListMaxKeys))
		if err != nil {
			return nil, err
		}
		for _, object := range res.Objects {
			keys = append(keys, object.Key)
		}
		if !res.IsTruncated {
			return keys, nil
		}
		marker = res.NextMarker
	}
}

func (o *OssStore) SignURL(_ context.Context, key, method string, expire time.Duration) (string, error) {
	if err := checkMethod(method); err != nil {
		return "", err
	}
	return o.bucket.SignURL(key, oss.HTTPMethod(method), int64(expire.Seconds()))
}
