package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

const (
	recordExt  = ".json"
	tempPrefix = ".tmp-"
	filePerm   = 0o640
	dirPerm    = 0o750
)

// FileBackend keeps one JSON file per record under <root>/<kind>/<id>.json.
type FileBackend struct {
	root   string
	closed atomic.Bool

	// beforePublish runs after the temp file is durable and before it is
	// renamed into place. Tests use it to simulate a crash mid-write.
	beforePublish func(tmpPath string) error
	// syncDir makes a rename or link in dir durable.
	syncDir func(dir string) error
}

// NewFileBackend prepares the directory layout under root.
func NewFileBackend(root string) (*FileBackend, error) {
	for _, kind := range []Kind{KindChat, KindStreams} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileBackend{root: root, syncDir: syncDir}, nil
}

// Root returns the storage root directory.
func (b *FileBackend) Root() string { return b.root }

func (b *FileBackend) dir(kind Kind) string { return filepath.Join(b.root, string(kind)) }

func (b *FileBackend) path(kind Kind, id string) string {
	return filepath.Join(b.dir(kind), id+recordExt)
}

func (b *FileBackend) check(ctx context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (b *FileBackend) Stat(ctx context.Context, kind Kind, id string) (RecordInfo, error) {
	if err := b.check(ctx); err != nil {
		return RecordInfo{}, err
	}
	fi, err := os.Stat(b.path(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RecordInfo{}, ErrRecordNotFound
		}
		return RecordInfo{}, err
	}
	return recordInfo(kind, id, fi), nil
}

func (b *FileBackend) Read(ctx context.Context, kind Kind, id string) ([]byte, RecordInfo, error) {
	if err := b.check(ctx); err != nil {
		return nil, RecordInfo{}, err
	}
	f, err := os.Open(b.path(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, RecordInfo{}, ErrRecordNotFound
		}
		return nil, RecordInfo{}, err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			slog.Warn("Failed to close record file", "path", f.Name(), "error", cErr)
		}
	}()

	// Stat the open descriptor so data and metadata describe the same version
	// even if a writer renames a new file into place meanwhile.
	fi, err := f.Stat()
	if err != nil {
		return nil, RecordInfo{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, RecordInfo{}, err
	}
	return data, recordInfo(kind, id, fi), nil
}

func (b *FileBackend) Write(ctx context.Context, kind Kind, id string, data []byte) error {
	if err := b.check(ctx); err != nil {
		return err
	}
	return b.publish(kind, id, data, false)
}

func (b *FileBackend) Create(ctx context.Context, kind Kind, id string, data []byte) error {
	if err := b.check(ctx); err != nil {
		return err
	}
	return b.publish(kind, id, data, true)
}

// publish writes data to a temp file in the target directory, syncs it and
// then makes it visible in one step: rename for overwrites, hard link for
// exclusive creation. On any failure the temp file is removed and the
// previously published record is untouched.
func (b *FileBackend) publish(kind Kind, id string, data []byte, exclusive bool) error {
	dir := b.dir(kind)
	target := b.path(kind, id)

	f, err := os.CreateTemp(dir, tempPrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()

	success := false
	defer func() {
		if !success {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if b.beforePublish != nil {
		if err := b.beforePublish(tmpPath); err != nil {
			return err
		}
	}

	if exclusive {
		if err := os.Link(tmpPath, target); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return ErrRecordExists
			}
			return fmt.Errorf("failed to link temp file: %w", err)
		}
		// The record is published; the temp name is removed by the deferred cleanup.
		b.syncParent(dir)
		return nil
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	b.syncParent(dir)
	return nil
}

// syncParent flushes the directory entry of a published record. The record
// is already visible, so a failure is logged rather than returned.
func (b *FileBackend) syncParent(dir string) {
	if b.syncDir == nil {
		return
	}
	if err := b.syncDir(dir); err != nil {
		slog.Warn("Failed to sync storage directory", "dir", dir, "error", err)
	}
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return err
	}
	return d.Close()
}

func (b *FileBackend) List(ctx context.Context, kind Kind) ([]RecordInfo, error) {
	if err := b.check(ctx); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(b.dir(kind))
	if err != nil {
		return nil, err
	}

	infos := make([]RecordInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		// Leftover temp files from an interrupted write are never records.
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		infos = append(infos, recordInfo(kind, strings.TrimSuffix(name, recordExt), fi))
	}
	return infos, nil
}

func (b *FileBackend) Close() error {
	b.closed.Store(true)
	return nil
}

func recordInfo(kind Kind, id string, fi fs.FileInfo) RecordInfo {
	return RecordInfo{Kind: kind, ID: id, Size: fi.Size(), ModTime: fi.ModTime()}
}
