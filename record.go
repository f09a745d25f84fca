package main

import (
	"context"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"time"
)

// TransferRecord is the cached outcome of one transfer.
type TransferRecord struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	SourcePath string    `json:"source_path"`
	Sink       string    `json:"sink"`
	SinkPath   string    `json:"sink_path"`
	StatusCode int       `json:"status_code"`
	Bytes      int64     `json:"bytes"`
	SourceETag string    `json:"source_etag,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type RecordStore struct {
	cache *marshaler.Marshaler
	ttl   time.Duration
}

func NewRecordStore(cache *marshaler.Marshaler, ttl time.Duration) *RecordStore {
	return &RecordStore{cache: cache, ttl: ttl}
}

func (s *RecordStore) Save(ctx context.Context, record *TransferRecord) error {
	return s.cache.Set(ctx, recordKey(record.ID), record, store.WithExpiration(s.ttl))
}

func (s *RecordStore) Get(ctx context.Context, id string) (*TransferRecord, error) {
	record := &TransferRecord{}
	if _, err := s.cache.Get(ctx, recordKey(id), record); err != nil {
		return nil, err
	}
	return record, nil
}

func recordKey(id string) string {
	return "transfer_" + id
}
