package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memKey struct {
	kind Kind
	id   string
}

type memRecord struct {
	data    []byte
	modTime time.Time
}

// MemoryBackend keeps records in process memory. Writes swap whole byte
// slices under a lock, so readers never observe partial content.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[memKey]memRecord
	closed  bool
	now     func() time.Time
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[memKey]memRecord), now: time.Now}
}

// SetClock replaces the time source used for modification times.
func (b *MemoryBackend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *MemoryBackend) Stat(ctx context.Context, kind Kind, id string) (RecordInfo, error) {
	_, info, err := b.get(ctx, kind, id, false)
	return info, err
}

func (b *MemoryBackend) Read(ctx context.Context, kind Kind, id string) ([]byte, RecordInfo, error) {
	return b.get(ctx, kind, id, true)
}

func (b *MemoryBackend) get(ctx context.Context, kind Kind, id string, withData bool) ([]byte, RecordInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, RecordInfo{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, RecordInfo{}, ErrClosed
	}
	rec, ok := b.records[memKey{kind, id}]
	if !ok {
		return nil, RecordInfo{}, ErrRecordNotFound
	}
	info := RecordInfo{Kind: kind, ID: id, Size: int64(len(rec.data)), ModTime: rec.modTime}
	if !withData {
		return nil, info, nil
	}
	return slices.Clone(rec.data), info, nil
}

func (b *MemoryBackend) Write(ctx context.Context, kind Kind, id string, data []byte) error {
	return b.put(ctx, kind, id, data, false)
}

func (b *MemoryBackend) Create(ctx context.Context, kind Kind, id string, data []byte) error {
	return b.put(ctx, kind, id, data, true)
}

func (b *MemoryBackend) put(ctx context.Context, kind Kind, id string, data []byte, exclusive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	key := memKey{kind, id}
	if _, ok := b.records[key]; ok && exclusive {
		return ErrRecordExists
	}
	b.records[key] = memRecord{data: slices.Clone(data), modTime: b.now()}
	return nil
}

func (b *MemoryBackend) List(ctx context.Context, kind Kind) ([]RecordInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	var infos []RecordInfo
	for key, rec := range b.records {
		if key.kind != kind {
			continue
		}
		infos = append(infos, RecordInfo{Kind: kind, ID: key.id, Size: int64(len(rec.data)), ModTime: rec.modTime})
	}
	// Map iteration is random; sort by id like a directory listing.
	slices.SortFunc(infos, func(a, b RecordInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return infos, nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
