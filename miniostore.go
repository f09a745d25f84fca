package main

import (
	"context"
	"errors"
	"filerelay/config"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"io"
	"net/http"
	"strings"
)

const providerMinio = "minio"

// minio rejects smaller parts for streams of unknown size.
const minioMinPartSize = 5 << 20

type MinioStore struct {
	Client   *minio.Client
	transfer config.Transfer
}

func NewMinioStore(client *minio.Client, transfer config.Transfer) *MinioStore {
	return &MinioStore{Client: client, transfer: transfer}
}

func NewMinioStoreFactory(cfg *config.Config) StoreFactory {
	return func(ctx context.Context) (ObjectStore, error) {
		if cfg.Minio.EndPoint == "" {
			return nil, &StoreError{Provider: providerMinio, Op: "connect", Err: errors.New("MINIO_ENDPOINT is not set")}
		}
		endpoint := cfg.Minio.EndPoint
		secure := cfg.Minio.UseSSL
		if strings.HasPrefix(endpoint, "http://") {
			secure = false
		}
		if strings.HasPrefix(endpoint, "https://") {
			secure = true
		}
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")

		client, err := minio.New(endpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: secure,
			Region: cfg.Minio.Region,
		})
		if err != nil {
			return nil, &StoreError{Provider: providerMinio, Op: "connect", Err: err}
		}
		return NewMinioStore(client, cfg.Transfer), nil
	}
}

// GetObject stats before returning since minio opens objects lazily and
// would otherwise report a missing key on the first Read.
func (s *MinioStore) GetObject(ctx context.Context, path string) (*Object, error) {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := s.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, newStoreError(providerMinio, "get", bucket, key, classifyMinioError(err), err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, newStoreError(providerMinio, "get", bucket, key, classifyMinioError(err), err)
	}
	return &Object{
		ObjectAttribute: ObjectAttribute{
			ETag:         info.ETag,
			LastModified: info.LastModified,
			Size:         info.Size,
		},
		Body: obj,
	}, nil
}

func (s *MinioStore) PutObject(ctx context.Context, path string, body io.Reader, size int64) error {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{NumThreads: uint(max(s.transfer.Concurrency, 1))}
	if s.transfer.PartSize >= minioMinPartSize {
		opts.PartSize = uint64(s.transfer.PartSize)
	}
	if _, err := s.Client.PutObject(ctx, bucket, key, body, size, opts); err != nil {
		return newStoreError(providerMinio, "put", bucket, key, classifyMinioError(err), err)
	}
	return nil
}

func (s *MinioStore) Close() error {
	return nil
}

func classifyMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return ErrObjectNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return ErrAccessDenied
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrObjectNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrAccessDenied
	}
	return nil
}
