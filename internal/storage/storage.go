// Package storage holds the durable record backends used by the chat store.
//
// A backend stores opaque byte records addressed by (Kind, id). Every
// write is published atomically: a concurrent reader sees either the
// previous record or the new one in full, never a mix.
package storage

import (
	"context"
	"errors"
	"time"
)

// Kind names a family of records.
type Kind string

const (
	KindChat    Kind = "chats"
	KindStreams Kind = "streams"
)

var (
	// ErrRecordNotFound is returned when no record exists for a key.
	ErrRecordNotFound = errors.New("storage: record not found")
	// ErrRecordExists is returned by Create when the key is already taken.
	ErrRecordExists = errors.New("storage: record already exists")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("storage: backend closed")
)

// RecordInfo is the metadata of a stored record.
type RecordInfo struct {
	Kind    Kind
	ID      string
	Size    int64
	ModTime time.Time
}

// Backend is the storage handle injected into the repositories. It is
// opened once at startup and closed at shutdown.
type Backend interface {
	// Stat returns the record's metadata or ErrRecordNotFound.
	Stat(ctx context.Context, kind Kind, id string) (RecordInfo, error)
	// Read returns the record's content together with the metadata of the
	// same version.
	Read(ctx context.Context, kind Kind, id string) ([]byte, RecordInfo, error)
	// Write replaces (or creates) the record atomically.
	Write(ctx context.Context, kind Kind, id string, data []byte) error
	// Create publishes the record only if none exists, else ErrRecordExists.
	Create(ctx context.Context, kind Kind, id string, data []byte) error
	// List enumerates records of a kind in a stable order.
	List(ctx context.Context, kind Kind) ([]RecordInfo, error)
	Close() error
}
