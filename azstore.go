package main

import (
	"context"
	"errors"
	"filerelay/config"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"io"
	"net/http"
)

const providerAzure = "asa"

// AzureBlobAPI is the part of *azblob.Client the store uses.
type AzureBlobAPI interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	UploadStream(ctx context.Context, containerName string, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
}

type AzureStore struct {
	Client   AzureBlobAPI
	transfer config.Transfer
}

func NewAzureStore(client AzureBlobAPI, transfer config.Transfer) *AzureStore {
	return &AzureStore{Client: client, transfer: transfer}
}

func NewAzureStoreFactory(cfg *config.Config) StoreFactory {
	return func(ctx context.Context) (ObjectStore, error) {
		if cfg.Azure.ConnectionString == "" {
			return nil, &StoreError{Provider: providerAzure, Op: "connect", Err: errors.New("ASA_CONNECTION_STRING is not set")}
		}
		client, err := azblob.NewClientFromConnectionString(cfg.Azure.ConnectionString, nil)
		if err != nil {
			return nil, &StoreError{Provider: providerAzure, Op: "connect", Err: err}
		}
		return NewAzureStore(client, cfg.Transfer), nil
	}
}

func (s *AzureStore) GetObject(ctx context.Context, path string) (*Object, error) {
	container, blobName, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	res, err := s.Client.DownloadStream(ctx, container, blobName, nil)
	if err != nil {
		return nil, newStoreError(providerAzure, "get", container, blobName, classifyAzureError(err), err)
	}
	obj := &Object{
		ObjectAttribute: ObjectAttribute{Size: -1},
		Body:            res.Body,
	}
	if res.ETag != nil {
		obj.ETag = string(*res.ETag)
	}
	if res.LastModified != nil {
		obj.LastModified = *res.LastModified
	}
	if res.ContentLength != nil {
		obj.Size = *res.ContentLength
	}
	return obj, nil
}

// PutObject uploads a block blob. Blocks are only committed once the whole
// stream has been read, so a failed upload leaves the previous blob intact.
func (s *AzureStore) PutObject(ctx context.Context, path string, body io.Reader, _ int64) error {
	container, blobName, err := SplitPath(path)
	if err != nil {
		return err
	}
	opts := &azblob.UploadStreamOptions{
		BlockSize:   s.transfer.PartSize,
		Concurrency: s.transfer.Concurrency,
	}
	if _, err := s.Client.UploadStream(ctx, container, blobName, body, opts); err != nil {
		return newStoreError(providerAzure, "put", container, blobName, classifyAzureError(err), err)
	}
	return nil
}

func (s *AzureStore) Close() error {
	return nil
}

func classifyAzureError(err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound):
		return ErrObjectNotFound
	case bloberror.HasCode(err, bloberror.AuthorizationFailure, bloberror.AuthenticationFailed,
		bloberror.AuthorizationPermissionMismatch, bloberror.InsufficientAccountPermissions):
		return ErrAccessDenied
	}
	var re *azcore.ResponseError
	if errors.As(err, &re) {
		switch re.StatusCode {
		case http.StatusNotFound:
			return ErrObjectNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return ErrAccessDenied
		}
	}
	return nil
}
