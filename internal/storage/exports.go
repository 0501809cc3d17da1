package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/restock-console/mapeditor/internal/models"
)

const exportExt = ".png"

// ExportStore keeps rendered map images.
type ExportStore interface {
	Save(mapID, name string, r io.Reader) (*models.ExportInfo, error)
	Get(id string) (*models.ExportInfo, error)
	List(limit int) ([]*models.ExportInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
}

// LocalStore implements ExportStore on the local filesystem. Files are
// named by id; metadata lives in memory and is rebuilt from the directory
// on start.
type LocalStore struct {
	mu      sync.RWMutex
	dir     string
	exports map[string]*models.ExportInfo
}

// NewLocalStore creates the directory if needed and indexes existing exports.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	s := &LocalStore{
		dir:     dir,
		exports: make(map[string]*models.ExportInfo),
	}
	if err := s.scan(); err != nil {
		fmt.Printf("[Exports] Warning: failed to scan export directory: %v\n", err)
	}
	return s, nil
}

func (s *LocalStore) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), exportExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), exportExt)
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		s.exports[id] = &models.ExportInfo{
			ID:          id,
			Name:        entry.Name(),
			ContentType: "image/png",
			Size:        info.Size(),
			CreatedAt:   info.ModTime(),
		}
	}
	if len(s.exports) > 0 {
		fmt.Printf("[Exports] Found %d existing exports\n", len(s.exports))
	}
	return nil
}

// Save writes an export.
func (s *LocalStore) Save(mapID, name string, r io.Reader) (*models.ExportInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id+exportExt)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.ExportInfo{
		ID:          id,
		MapID:       mapID,
		Name:        name,
		ContentType: "image/png",
		Size:        size,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[id] = info

	return info, nil
}

// Get retrieves export metadata by ID.
func (s *LocalStore) Get(id string) (*models.ExportInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.exports[id]
	if !ok {
		return nil, fmt.Errorf("export not found: %s", id)
	}
	return info, nil
}

// List returns the most recent exports.
func (s *LocalStore) List(limit int) ([]*models.ExportInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.ExportInfo, 0, len(s.exports))
	for _, info := range s.exports {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes an export.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exports[id]; !ok {
		return fmt.Errorf("export not found: %s", id)
	}

	path := filepath.Join(s.dir, id+exportExt)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.exports, id)
	return nil
}

// GetFilePath returns the path of an export.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.exports[id]; !ok {
		return "", fmt.Errorf("export not found: %s", id)
	}
	return filepath.Join(s.dir, id+exportExt), nil
}
