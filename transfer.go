package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"io"
	"time"
)

type TransferRequest struct {
	Source     string `json:"source"`
	SourcePath string `json:"source_path"`
	Sink       string `json:"sink"`
	SinkPath   string `json:"sink_path"`
}

func (r *TransferRequest) Valid() bool {
	return r.Source != "" && r.SourcePath != "" && r.Sink != "" && r.SinkPath != ""
}

type Role string

const (
	RoleSource Role = "source"
	RoleSink   Role = "sink"
)

// ProviderError reports a tag the registry does not know.
type ProviderError struct {
	Role Role
	Tag  string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Role, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type Stage string

const (
	StageRead  Stage = "read"
	StageWrite Stage = "write"
)

// TransferError tells a failing source stream apart from a failing sink.
// Bytes is how much of the source had been read when it failed.
type TransferError struct {
	Stage Stage
	Bytes int64
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

type TransferResult struct {
	Bytes      int64
	SourceETag string
	Duration   time.Duration
}

// Relay copies single objects between registered stores.
type Relay struct {
	registry *Registry
	timeout  time.Duration
}

func NewRelay(registry *Registry, timeout time.Duration) *Relay {
	return &Relay{registry: registry, timeout: timeout}
}

// Copy streams the source object into the sink. Both tags and both paths
// are checked before any store is contacted.
func (r *Relay) Copy(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sourceFactory, err := r.registry.Lookup(req.Source)
	if err != nil {
		return nil, &ProviderError{Role: RoleSource, Tag: req.Source, Err: err}
	}
	sinkFactory, err := r.registry.Lookup(req.Sink)
	if err != nil {
		return nil, &ProviderError{Role: RoleSink, Tag: req.Sink, Err: err}
	}
	if _, _, err := SplitPath(req.SourcePath); err != nil {
		return nil, err
	}
	if _, _, err := SplitPath(req.SinkPath); err != nil {
		return nil, err
	}

	// Clients may keep the construction context for token refreshes, so the
	// group must not cancel it.
	var source, sink ObjectStore
	var g errgroup.Group
	g.Go(func() (err error) {
		source, err = sourceFactory(ctx)
		return err
	})
	g.Go(func() (err error) {
		sink, err = sinkFactory(ctx)
		return err
	})
	err = g.Wait()
	defer closeStore(source)
	defer closeStore(sink)
	if err != nil {
		return nil, err
	}

	obj, err := source.GetObject(ctx, req.SourcePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := obj.Body.Close(); err != nil {
			logrus.Errorln("Error closing source body", err)
		}
	}()

	body := &countingReader{r: obj.Body}
	if err := sink.PutObject(ctx, req.SinkPath, body, obj.Size); err != nil {
		if body.err != nil {
			return nil, &TransferError{Stage: StageRead, Bytes: body.n, Err: body.err}
		}
		return nil, &TransferError{Stage: StageWrite, Bytes: body.n, Err: err}
	}

	return &TransferResult{
		Bytes:      body.n,
		SourceETag: obj.ETag,
		Duration:   time.Since(start),
	}, nil
}

func closeStore(s ObjectStore) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logrus.Errorln("Error closing store", err)
	}
}

// countingReader records bytes read and the first non-EOF read error.
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && c.err == nil {
		c.err = err
	}
	return n, err
}
