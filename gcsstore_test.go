package main

import (
	"bytes"
	"cloud.google.com/go/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeGCSServer speaks enough of the JSON upload API and the XML read API
// for storage.Client: multipart and resumable inserts, and object GETs.
type fakeGCSServer struct {
	*httptest.Server
	mu       sync.Mutex
	objects  map[string][]byte
	sessions map[string]*gcsSession
	chunks   int
}

type gcsSession struct {
	bucket, name string
	data         bytes.Buffer
}

func newFakeGCSServer(t *testing.T) *fakeGCSServer {
	f := &fakeGCSServer{
		objects:  make(map[string][]byte),
		sessions: make(map[string]*gcsSession),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGCSServer) newStore(t *testing.T, partSize int64) *GCSStore {
	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(f.URL+"/storage/v1/"),
		option.WithoutAuthentication())
	require.NoError(t, err)
	store := NewGCSStore(client, testTransferConfig())
	store.transfer.PartSize = partSize
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (f *fakeGCSServer) object(bucket, name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+name]
	return data, ok
}

func (f *fakeGCSServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/"):
		bucket := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/upload/storage/v1/b/"), "/o")
		switch r.URL.Query().Get("uploadType") {
		case "multipart":
			f.insertMultipart(w, r, bucket)
		case "resumable":
			f.startResumable(w, r, bucket)
		default:
			http.Error(w, "unsupported upload type", http.StatusBadRequest)
		}
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/session/"):
		f.uploadChunk(w, r, strings.TrimPrefix(r.URL.Path, "/session/"))
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		bucket, name, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, found := f.object(bucket, name)
		if !found {
			http.Error(w, "No such object", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("X-Goog-Generation", "1")
		w.Header().Set("X-Goog-Metageneration", "1")
		_, _ = w.Write(data)
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func (f *fakeGCSServer) insertMultipart(w http.ResponseWriter, r *http.Request, bucket string) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])
	var meta struct {
		Name string `json:"name"`
	}
	part, err := mr.NextPart()
	if err == nil {
		err = json.NewDecoder(part).Decode(&meta)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if part, err = mr.NextPart(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(part)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = meta.Name
	}
	f.finish(w, bucket, name, data)
}

func (f *fakeGCSServer) startResumable(w http.ResponseWriter, r *http.Request, bucket string) {
	f.mu.Lock()
	id := strconv.Itoa(len(f.sessions) + 1)
	f.sessions[id] = &gcsSession{bucket: bucket, name: r.URL.Query().Get("name")}
	f.mu.Unlock()
	w.Header().Set("Location", f.URL+"/session/"+id)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeGCSServer) uploadChunk(w http.ResponseWriter, r *http.Request, id string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	session, ok := f.sessions[id]
	if ok {
		session.data.Write(data)
		f.chunks++
	}
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	// "bytes 0-99/*" while more chunks follow, a concrete total on the last one.
	if strings.HasSuffix(r.Header.Get("Content-Range"), "/*") {
		w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", session.data.Len()-1))
		w.Header().Set("X-Http-Status-Code-Override", "308")
		w.WriteHeader(http.StatusOK)
		return
	}
	f.finish(w, session.bucket, session.name, session.data.Bytes())
}

func (f *fakeGCSServer) finish(w http.ResponseWriter, bucket, name string, data []byte) {
	f.mu.Lock()
	f.objects[bucket+"/"+name] = bytes.Clone(data)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"bucket":     bucket,
		"name":       name,
		"size":       strconv.Itoa(len(data)),
		"generation": "1",
	})
}

func TestClassifyGCSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "object not exist", err: storage.ErrObjectNotExist, want: ErrObjectNotFound},
		{name: "wrapped bucket not exist", err: fmt.Errorf("open: %w", storage.ErrBucketNotExist), want: ErrObjectNotFound},
		{name: "api 403", err: &googleapi.Error{Code: http.StatusForbidden}, want: ErrAccessDenied},
		{name: "api 401", err: &googleapi.Error{Code: http.StatusUnauthorized}, want: ErrAccessDenied},
		{name: "api 404", err: &googleapi.Error{Code: http.StatusNotFound}, want: ErrObjectNotFound},
		{name: "api 503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: nil},
		{name: "other", err: errors.New("unexpected EOF"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyGCSError(tt.err))
		})
	}
}

func TestGCSStore_InvalidPath(t *testing.T) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx, option.WithoutAuthentication())
	require.NoError(t, err)
	store := NewGCSStore(client, testTransferConfig())
	defer store.Close()

	_, err = store.GetObject(ctx, "nocontainer")
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = store.PutObject(ctx, "bucket/", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestGCSStore_RoundTrip(t *testing.T) {
	server := newFakeGCSServer(t)
	store := server.newStore(t, 8<<20)
	ctx := context.Background()

	err := store.PutObject(ctx, "bucket-g/dir/file.txt", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	data, ok := server.object("bucket-g", "dir/file.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	obj, err := store.GetObject(ctx, "bucket-g/dir/file.txt")
	require.NoError(t, err)
	defer obj.Body.Close()
	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), obj.LastModified.UTC())
}

func TestGCSStore_PutObject_Chunked(t *testing.T) {
	server := newFakeGCSServer(t)
	store := server.newStore(t, googleapi.MinUploadChunkSize)

	content := bytes.Repeat([]byte("0123456789abcdef"), (googleapi.MinUploadChunkSize*2+4096)/16)
	err := store.PutObject(context.Background(), "bucket-g/large.bin", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	data, ok := server.object("bucket-g", "large.bin")
	require.True(t, ok)
	assert.True(t, bytes.Equal(content, data))
	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, 3, server.chunks)
}

func TestGCSStore_PutObject_SourceFailureLeavesNoObject(t *testing.T) {
	server := newFakeGCSServer(t)
	store := server.newStore(t, 8<<20)

	body := io.MultiReader(strings.NewReader("partial"), &errReader{err: errors.New("connection reset")})
	err := store.PutObject(context.Background(), "bucket-g/broken.txt", body, -1)
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, providerGCS, storeErr.Provider)
	assert.Contains(t, err.Error(), "connection reset")

	_, ok := server.object("bucket-g", "broken.txt")
	assert.False(t, ok)
}

func TestGCSStore_GetObject_NotFound(t *testing.T) {
	server := newFakeGCSServer(t)
	store := server.newStore(t, 8<<20)

	_, err := store.GetObject(context.Background(), "bucket-g/missing.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
