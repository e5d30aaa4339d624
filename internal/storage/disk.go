package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/daniss/Raggy-sub000/pkg/logger"
)

// DiskStore persists each key as one JSON file under dataDir. Writes go
// through a temp file and rename so a crash never leaves a half-written
// value. Entries are cached in memory after Init.
type DiskStore struct {
	dataDir string
	mu      sync.RWMutex
	cache   map[string][]byte
}

func NewDiskStore(dataDir string) *DiskStore {
	return &DiskStore{
		dataDir: dataDir,
		cache:   make(map[string][]byte),
	}
}

func (d *DiskStore) Init() error {
	if err := os.MkdirAll(filepath.Join(d.dataDir, "kv"), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	if err := os.MkdirAll(filepath.Join(d.dataDir, "backup"), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadEntries(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Info("Disk store initialized successfully")
	return nil
}

func (d *DiskStore) loadEntries() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "kv"))
	if err != nil {
		return err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		key := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(d.keyPath(key))
		if err != nil {
			logger.Errorf("Failed to load entry %s: %v", key, err)
			continue
		}

		d.cache[key] = data
	}

	return nil
}

func (d *DiskStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	d.mu.RLock()
	if value, exists := d.cache[key]; exists {
		out := make([]byte, len(value))
		copy(out, value)
		d.mu.RUnlock()
		return out, nil
	}
	d.mu.RUnlock()

	data, err := os.ReadFile(d.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[key] = data
	d.mu.Unlock()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (d *DiskStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.keyPath(key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, value, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	d.cache[key] = stored

	return nil
}

func (d *DiskStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.keyPath(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrKeyNotFound
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, key)
	return nil
}

func (d *DiskStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string][]byte)
	return nil
}

func (d *DiskStore) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().Unix()))
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	files, err := os.ReadDir(filepath.Join(d.dataDir, "kv"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(d.dataDir, "kv", file.Name()))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		if err := os.WriteFile(filepath.Join(backupDir, file.Name()), data, 0644); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	logger.Infof("Backup completed: %s", backupDir)
	return nil
}

func (d *DiskStore) keyPath(key string) string {
	return filepath.Join(d.dataDir, "kv", key+".json")
}

// validateKey keeps keys usable as file names.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
