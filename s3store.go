package main

import (
	"context"
	"errors"
	"filerelay/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	s3config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"io"
	"net/http"
)

const providerS3 = "s3"

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Store struct {
	Client   S3API
	uploader *manager.Uploader
}

func NewS3Store(client S3API, transfer config.Transfer) *S3Store {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if transfer.PartSize >= manager.MinUploadPartSize {
			u.PartSize = transfer.PartSize
		}
		if transfer.Concurrency > 0 {
			u.Concurrency = transfer.Concurrency
		}
	})
	return &S3Store{Client: client, uploader: uploader}
}

// NewS3StoreFactory builds clients from static keys when they are set and
// from the default AWS chain otherwise.
func NewS3StoreFactory(cfg *config.Config) StoreFactory {
	return func(ctx context.Context) (ObjectStore, error) {
		var opts []func(*s3config.LoadOptions) error
		if cfg.S3.Region != "" {
			opts = append(opts, s3config.WithRegion(cfg.S3.Region))
		}
		if cfg.S3.AccessKey != "" {
			opts = append(opts, s3config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")))
		}
		sdkConfig, err := s3config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, &StoreError{Provider: providerS3, Op: "connect", Err: err}
		}
		client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
			// Custom endpoints are S3-compatible servers that rarely resolve
			// bucket subdomains, so they get path-style addressing.
			if cfg.S3.EndPoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.EndPoint)
				o.UsePathStyle = true
			}
			if cfg.S3.ForcePathStyle {
				o.UsePathStyle = true
			}
		})
		return NewS3Store(client, cfg.Transfer), nil
	}
}

func (s *S3Store) GetObject(ctx context.Context, path string) (*Object, error) {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	res, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, newStoreError(providerS3, "get", bucket, key, classifyS3Error(err), err)
	}
	obj := &Object{
		ObjectAttribute: ObjectAttribute{
			ETag: aws.ToString(res.ETag),
			Size: -1,
		},
		Body: res.Body,
	}
	if res.LastModified != nil {
		obj.LastModified = *res.LastModified
	}
	if res.ContentLength != nil {
		obj.Size = *res.ContentLength
	}
	return obj, nil
}

func (s *S3Store) PutObject(ctx context.Context, path string, body io.Reader, _ int64) error {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return newStoreError(providerS3, "put", bucket, key, classifyS3Error(err), err)
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}

func classifyS3Error(err error) error {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsk) || errors.As(err, &nsb) {
		return ErrObjectNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return ErrObjectNotFound
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return ErrAccessDenied
		}
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrObjectNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return ErrAccessDenied
		}
	}
	return nil
}
