package main

import (
	"cloud.google.com/go/storage"
	"context"
	"errors"
	"filerelay/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"io"
	"net/http"
)

const providerGCS = "gcs"

type GCSStore struct {
	Client   *storage.Client
	transfer config.Transfer
}

func NewGCSStore(client *storage.Client, transfer config.Transfer) *GCSStore {
	return &GCSStore{Client: client, transfer: transfer}
}

// NewGCSStoreFactory uses application default credentials unless a
// credentials file is configured.
func NewGCSStoreFactory(cfg *config.Config) StoreFactory {
	return func(ctx context.Context) (ObjectStore, error) {
		var opts []option.ClientOption
		if cfg.GCS.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
		}
		if cfg.GCS.EndPoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GCS.EndPoint))
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, &StoreError{Provider: providerGCS, Op: "connect", Err: err}
		}
		return NewGCSStore(client, cfg.Transfer), nil
	}
}

func (s *GCSStore) GetObject(ctx context.Context, path string) (*Object, error) {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	r, err := s.Client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, newStoreError(providerGCS, "get", bucket, key, classifyGCSError(err), err)
	}
	return &Object{
		ObjectAttribute: ObjectAttribute{
			LastModified: r.Attrs.LastModified,
			Size:         r.Attrs.Size,
		},
		Body: r,
	}, nil
}

// PutObject streams body in ChunkSize pieces. The object is only finalized
// by a successful Close; on a copy error the writer context is cancelled
// instead so no partial object appears.
func (s *GCSStore) PutObject(ctx context.Context, path string, body io.Reader, _ int64) error {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.Client.Bucket(bucket).Object(key).NewWriter(ctx)
	if s.transfer.PartSize > 0 {
		w.ChunkSize = int(s.transfer.PartSize)
	}
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		_ = w.Close()
		return newStoreError(providerGCS, "put", bucket, key, classifyGCSError(err), err)
	}
	if err := w.Close(); err != nil {
		return newStoreError(providerGCS, "put", bucket, key, classifyGCSError(err), err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.Client.Close()
}

func classifyGCSError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return ErrObjectNotFound
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return ErrObjectNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return ErrAccessDenied
		}
	}
	return nil
}
