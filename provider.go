package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrObjectNotFound      = errors.New("object not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInvalidPath         = errors.New("invalid path, expected <container>/<key>")
)

type ObjectAttribute struct {
	ETag         string
	LastModified time.Time
	// Size is -1 when the provider did not report a length.
	Size int64
}

// Object is an open read stream on a stored object. The caller owns Body.
type Object struct {
	ObjectAttribute
	Body io.ReadCloser
}

// ObjectStore is one storage backend. Paths are "<container>/<key>".
type ObjectStore interface {
	GetObject(ctx context.Context, path string) (*Object, error)
	// PutObject overwrites path with the content of body. size may be -1.
	PutObject(ctx context.Context, path string, body io.Reader, size int64) error
	Close() error
}

// StoreFactory builds a store for a single transfer.
type StoreFactory func(ctx context.Context) (ObjectStore, error)

type Registry struct {
	factories map[string]StoreFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]StoreFactory)}
}

func (r *Registry) Register(tag string, factory StoreFactory) {
	r.factories[tag] = factory
}

func (r *Registry) Lookup(tag string) (StoreFactory, error) {
	factory, ok := r.factories[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, tag)
	}
	return factory, nil
}

func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// SplitPath splits at the first separator; the rest belongs to the key.
func SplitPath(path string) (container, key string, err error) {
	container, key, ok := strings.Cut(path, "/")
	if !ok || container == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return container, key, nil
}

// StoreError carries the provider operation and object that failed.
type StoreError struct {
	Provider  string
	Op        string
	Container string
	Key       string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Container != "" && e.Key != "" {
		return fmt.Sprintf("%s.%s %s/%s: %v", e.Provider, e.Op, e.Container, e.Key, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Provider, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// kind is ErrObjectNotFound, ErrAccessDenied or nil.
func newStoreError(provider, op, container, key string, kind, err error) *StoreError {
	if kind != nil {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return &StoreError{Provider: provider, Op: op, Container: container, Key: key, Err: err}
}
