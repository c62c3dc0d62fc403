package draft

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pavelanni/proctor/internal/codec"
)

const fileExt = ".draft"

// FileStore keeps one CBOR-encoded record per file in a directory. Writes
// go to a temporary file which is fsynced and renamed into place, so a
// reader never sees a partial record.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create drafts dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+fileExt)
}

func (f *FileStore) Get(_ context.Context, key string) (Record, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read draft %s: %w", key, err)
	}
	var rec Record
	if err := codec.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode draft %s: %w", key, err)
	}
	return rec, nil
}

func (f *FileStore) Put(_ context.Context, rec Record) error {
	data, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", rec.Key, err)
	}
	target := f.path(rec.Key)
	tmp := target + ".tmp"

	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temporary draft file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temporary draft file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temporary draft file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temporary draft file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename draft file into place: %w", err)
	}
	if dir, err := os.Open(f.dir); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove draft %s: %w", key, err)
	}
	return nil
}

// List returns every decodable record ordered by key. Unreadable files
// are skipped.
func (f *FileStore) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read drafts dir: %w", err)
	}
	var out []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		rec, err := f.Get(ctx, key)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
