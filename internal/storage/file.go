package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore persists the memory document as one indented JSON file,
// rewritten atomically after every change.
type FileStore struct {
	*MemoryStore
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	store := &FileStore{
		MemoryStore: &MemoryStore{doc: doc},
		path:        path,
	}
	store.persist = store.write

	slog.Info("File store opened",
		"path", path,
		"months", len(doc.Months),
		"users", len(doc.Users))

	return store, nil
}

func readDocument(path string) (*document, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	doc := &document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("decode data file %s: %w", path, err)
		}
	}
	doc.init()
	return doc, nil
}

func (s *FileStore) write(doc *document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".gastos-*.json")
	if err != nil {
		return fmt.Errorf("create temp data file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}
